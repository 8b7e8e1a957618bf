package docs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type insertCall struct {
	docID string
	index int64
	text  string
}

type fakeService struct {
	endIndex  int64
	getErr    error
	insertErr error
	inserts   []insertCall
}

func (f *fakeService) EndIndex(_ context.Context, _ string) (int64, error) {
	return f.endIndex, f.getErr
}

func (f *fakeService) InsertText(_ context.Context, docID string, index int64, text string) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserts = append(f.inserts, insertCall{docID: docID, index: index, text: text})
	return nil
}

func fixedClock() time.Time {
	return time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)
}

func TestAppender_InsertsEnvelopeAtEndMinusOne(t *testing.T) {
	svc := &fakeService{endIndex: 120}
	a := NewAppender(nil, WithService(svc), WithClock(fixedClock), WithRequestsPerMinute(6000))

	require.NoError(t, a.Append(context.Background(), "D1", "Hello", "Weekly"))

	require.Len(t, svc.inserts, 1)
	assert.Equal(t, "D1", svc.inserts[0].docID)
	assert.Equal(t, int64(119), svc.inserts[0].index)
	assert.Equal(t, FormatEnvelope("Hello", "Weekly", fixedClock()), svc.inserts[0].text)
}

func TestAppender_LazyInitRetriesAfterFailure(t *testing.T) {
	svc := &fakeService{endIndex: 2}
	calls := 0
	factory := func(context.Context) (DocumentService, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("bad key file")
		}
		return svc, nil
	}

	a := NewAppender(factory, WithClock(fixedClock))

	err := a.Append(context.Background(), "D1", "first", "Notes")
	require.ErrorIs(t, err, ErrServiceInit)
	assert.ErrorIs(t, a.InitError(), ErrServiceInit)
	assert.Empty(t, svc.inserts)

	require.NoError(t, a.Append(context.Background(), "D1", "second", "Notes"))
	assert.NoError(t, a.InitError())

	require.NoError(t, a.Append(context.Background(), "D1", "third", "Notes"))
	assert.Equal(t, 2, calls, "factory should not run again after success")
	assert.Len(t, svc.inserts, 2)
	assert.Equal(t, int64(1), svc.inserts[0].index)
}

func TestAppender_NilFactory(t *testing.T) {
	a := NewAppender(nil)
	err := a.Append(context.Background(), "D1", "x", "Notes")
	assert.ErrorIs(t, err, ErrServiceInit)
}

func TestAppender_Failures(t *testing.T) {
	tests := []struct {
		name string
		svc  *fakeService
	}{
		{"get document fails", &fakeService{getErr: errors.New("404")}},
		{"insert fails", &fakeService{endIndex: 10, insertErr: errors.New("403")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAppender(nil, WithService(tt.svc))
			err := a.Append(context.Background(), "D1", "Hello", "Weekly")
			assert.ErrorIs(t, err, ErrAppend)
			assert.NotErrorIs(t, err, ErrServiceInit)
		})
	}
}

func TestAppender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := &fakeService{endIndex: 10}
	a := NewAppender(nil, WithService(svc), WithRequestsPerMinute(1))

	// Drain the single burst token so the next Wait must block.
	require.NoError(t, a.limiter.Wait(context.Background()))

	err := a.Append(ctx, "D1", "Hello", "Weekly")
	assert.ErrorIs(t, err, ErrAppend)
	assert.Empty(t, svc.inserts)
}
