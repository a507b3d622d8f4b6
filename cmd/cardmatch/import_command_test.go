package main

import (
	"context"
	"errors"
	"slices"
	"testing"

	"cardmatch/internal/records"
)

type recordingBatchTarget struct {
	name  string
	calls *[]string
	err   error
}

func (r recordingBatchTarget) Add(_ context.Context, _ []records.Record) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func (r recordingBatchTarget) PutRecords(_ context.Context, _ []records.Record) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func TestStoreRecordBatchIndexesBeforeStoring(t *testing.T) {
	recs := []records.Record{{ID: "r-shakes", Raw: map[string]string{"title": "Hamlet"}}}
	indexErr := errors.New("database is locked")

	tests := []struct {
		name      string
		indexErr  error
		storeErr  error
		wantCalls []string
		wantErr   error
	}{
		{"both succeed", nil, nil, []string{"index", "store"}, nil},
		{"index failure skips store", indexErr, nil, []string{"index"}, indexErr},
		{"store failure after index", nil, indexErr, []string{"index", "store"}, indexErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			idx := recordingBatchTarget{name: "index", calls: &calls, err: tt.indexErr}
			store := recordingBatchTarget{name: "store", calls: &calls, err: tt.storeErr}

			err := storeRecordBatch(context.Background(), idx, store, recs)
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Fatalf("storeRecordBatch error = %v, want %v", err, tt.wantErr)
			}
			if !slices.Equal(calls, tt.wantCalls) {
				t.Fatalf("calls = %v, want %v", calls, tt.wantCalls)
			}
		})
	}
}
