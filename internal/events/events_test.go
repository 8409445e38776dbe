package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, r.Publish(context.Background(), Event{Type: TypeTransactionApplied}))
		}()
	}
	wg.Wait()
	assert.Len(t, r.Events(), 10)

	r.Err = errors.New("broker down")
	assert.Error(t, r.Publish(context.Background(), Event{}))
	assert.Len(t, r.Events(), 10)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TypeLedgerCreated}))
}
