package index

import "math"

// BM25 parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// idf is the probabilistic inverse document frequency with the +1 inside the
// logarithm, so it stays positive even for terms in every document.
func idf(docFreq, docCount int) float64 {
	n := float64(docCount)
	df := float64(docFreq)
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// bm25 scores one term occurrence count within one field of one document.
func bm25(termFreq, fieldLength int, avgFieldLength, termIDF float64) float64 {
	if termFreq <= 0 {
		return 0
	}
	tf := float64(termFreq)
	norm := 1.0
	if avgFieldLength > 0 {
		norm = 1 - bm25B + bm25B*float64(fieldLength)/avgFieldLength
	}
	return termIDF * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
}
