// Package cards parses the NER inference stream and slices labeled field
// texts out of a card's OCR transcription.
//
// Each input line is a card path followed by tab-separated "label start end"
// triples. Offsets are rune offsets into the card's OCR text.
package cards
