package batch

import (
	"context"
	"errors"
	"testing"
)

func sampleRecords(n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{"name": "x"}
	}
	return records
}

func sequentialIDs(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids
}

func TestBatchCreate(t *testing.T) {
	fake := newFakeClient(0)
	engine := NewEngine(fake, Config{ChunkSize: 2})

	result := engine.BatchCreate(context.Background(), "res.partner", sampleRecords(5), MutateOptions{})
	if !result.Success || result.Processed != 5 {
		t.Errorf("result = %+v, want 5 processed successes", result)
	}
	if len(result.CreatedIDs) != 5 {
		t.Fatalf("CreatedIDs = %v, want 5 ids", result.CreatedIDs)
	}
	if result.CreatedIDs[0] != 1000 || result.CreatedIDs[4] != 1004 {
		t.Errorf("CreatedIDs = %v, want input order preserved", result.CreatedIDs)
	}
}

func TestBatchCreate_StopOnFirstError(t *testing.T) {
	fake := newFakeClient(0)
	fake.failCreates = map[int]error{2: errors.New("constraint violation")}
	engine := NewEngine(fake, Config{ChunkSize: 10})

	result := engine.BatchCreate(context.Background(), "res.partner", sampleRecords(5), MutateOptions{})
	if result.Processed != 2 || result.Failed != 1 {
		t.Errorf("result = %+v, want 2 processed and 1 failed before the halt", result)
	}
	if result.Success {
		t.Error("Success should be false")
	}
	if fake.creates != 3 {
		t.Errorf("remote creates = %d, want 3 (no calls after the failure)", fake.creates)
	}
}

func TestBatchCreate_ContinueOnError(t *testing.T) {
	fake := newFakeClient(0)
	fake.failCreates = map[int]error{2: errors.New("constraint violation")}
	engine := NewEngine(fake, Config{ChunkSize: 10})

	result := engine.BatchCreate(context.Background(), "res.partner", sampleRecords(5),
		MutateOptions{ContinueOnError: true})
	if result.Processed != 4 || result.Failed != 1 {
		t.Errorf("result = %+v, want 4 processed and 1 failed", result)
	}
	if len(result.Errors) != 1 || result.Errors[0].Index != 2 {
		t.Errorf("Errors = %+v, want one error at index 2", result.Errors)
	}
}

func TestBatchUpdate_Chunks(t *testing.T) {
	fake := newFakeClient(0)
	engine := NewEngine(fake, Config{ChunkSize: 4})

	result := engine.BatchUpdate(context.Background(), "res.partner", sequentialIDs(10),
		map[string]any{"active": false}, MutateOptions{})
	if !result.Success || result.Processed != 10 {
		t.Errorf("result = %+v, want 10 processed", result)
	}

	wantChunks := [][]int64{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10}}
	if len(fake.updates) != len(wantChunks) {
		t.Fatalf("update calls = %d, want %d", len(fake.updates), len(wantChunks))
	}
	for i, chunk := range wantChunks {
		if len(fake.updates[i]) != len(chunk) || fake.updates[i][0] != chunk[0] {
			t.Errorf("chunk %d = %v, want %v", i, fake.updates[i], chunk)
		}
	}
}

func TestBatchDelete_ChunkFailureHalts(t *testing.T) {
	fake := newFakeClient(0)
	// Second chunk starts at id 5.
	fake.failMutate = map[int64]error{5: errors.New("record locked")}
	engine := NewEngine(fake, Config{ChunkSize: 4})

	result := engine.BatchDelete(context.Background(), "res.partner", sequentialIDs(10), MutateOptions{})
	if result.Processed != 4 {
		t.Errorf("Processed = %d, want 4 (first chunk only)", result.Processed)
	}
	if result.Failed != 4 {
		t.Errorf("Failed = %d, want 4 (whole chunk fails as a unit)", result.Failed)
	}
	if result.Success {
		t.Error("Success should be false")
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %d, want 1", len(result.Errors))
	}
	if len(fake.deletes) != 2 {
		t.Errorf("remote delete calls = %d, want 2 (third chunk never attempted)", len(fake.deletes))
	}
}

func TestBatchDelete_ContinueOnError(t *testing.T) {
	fake := newFakeClient(0)
	fake.failMutate = map[int64]error{5: errors.New("record locked")}
	engine := NewEngine(fake, Config{ChunkSize: 4})

	result := engine.BatchDelete(context.Background(), "res.partner", sequentialIDs(10),
		MutateOptions{ContinueOnError: true})
	if result.Processed != 6 || result.Failed != 4 {
		t.Errorf("result = %+v, want 6 processed and 4 failed", result)
	}
}

func TestResult_ErrorListCapped(t *testing.T) {
	fake := newFakeClient(0)
	fake.failCreates = make(map[int]error)
	for i := 0; i < 15; i++ {
		fake.failCreates[i] = errors.New("bad record")
	}
	engine := NewEngine(fake, Config{ChunkSize: 100})

	result := engine.BatchCreate(context.Background(), "res.partner", sampleRecords(15),
		MutateOptions{ContinueOnError: true})
	if result.Failed != 15 {
		t.Errorf("Failed = %d, want the exact count 15", result.Failed)
	}
	if len(result.Errors) != MaxReportedErrors {
		t.Errorf("Errors = %d, want the cap %d", len(result.Errors), MaxReportedErrors)
	}
}

func TestRun_Dispatch(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		req     MutationRequest
		wantErr bool
	}{
		{
			name: "create",
			op:   OpCreate,
			req:  MutationRequest{Model: "res.partner", Records: sampleRecords(2)},
		},
		{
			name: "update",
			op:   OpUpdate,
			req:  MutationRequest{Model: "res.partner", IDs: sequentialIDs(2), Values: map[string]any{"x": 1}},
		},
		{
			name: "delete",
			op:   OpDelete,
			req:  MutationRequest{Model: "res.partner", IDs: sequentialIDs(2)},
		},
		{
			name:    "missing model",
			op:      OpCreate,
			req:     MutationRequest{Records: sampleRecords(1)},
			wantErr: true,
		},
		{
			name:    "create without records",
			op:      OpCreate,
			req:     MutationRequest{Model: "res.partner"},
			wantErr: true,
		},
		{
			name:    "update without values",
			op:      OpUpdate,
			req:     MutationRequest{Model: "res.partner", IDs: sequentialIDs(2)},
			wantErr: true,
		},
		{
			name:    "delete without ids",
			op:      OpDelete,
			req:     MutationRequest{Model: "res.partner"},
			wantErr: true,
		},
		{
			name:    "unsupported operation",
			op:      Operation("truncate"),
			req:     MutationRequest{Model: "res.partner", IDs: sequentialIDs(2)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(newFakeClient(0), DefaultConfig())
			result, err := engine.Run(context.Background(), tt.op, tt.req)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOperation) {
					t.Errorf("error = %v, want ErrInvalidOperation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !result.Success {
				t.Errorf("result = %+v, want success", result)
			}
		})
	}
}
