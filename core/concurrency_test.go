package core_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/modflow/core"
)

// gatedPublicDB blocks InsertPublic until released, keeping an approval in
// flight while the test observes from another goroutine.
type gatedPublicDB struct {
	core.PublicDB
	entered chan<- struct{}
	release <-chan struct{}
}

func (db *gatedPublicDB) InsertPublic(n core.DBNode) (core.DBPublic, error) {
	db.entered <- struct{}{}
	<-db.release
	return db.PublicDB.InsertPublic(n)
}

type countingPublicDB struct {
	core.PublicDB
	inserts atomic.Int32
}

func (db *countingPublicDB) InsertPublic(n core.DBNode) (core.DBPublic, error) {
	db.inserts.Add(1)
	return db.PublicDB.InsertPublic(n)
}

// A reader overlapping with an in-flight approval waits for it to finish
// instead of observing the state flip without the counterpart.
func TestReadDuringApproval(t *testing.T) {

	f := newFixture(t)

	page, err := f.db.CreateNode(f.super, f.home.ID(), "page")
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.db.PublicDB = &gatedPublicDB{PublicDB: f.db.PublicDB, entered: entered, release: release}

	done := make(chan error, 1)
	go func() {
		_, err := f.db.RequestPublish(f.super, page.ID())
		done <- err
	}()

	<-entered // the state flip has happened, the counterpart is not written yet

	type observation struct {
		state  core.ModerationState
		public bool
	}
	observed := make(chan observation, 1)
	go func() {
		n, err := f.db.GetNode(page.ID())
		if err != nil {
			observed <- observation{}
			return
		}
		public, _ := f.db.HasPublicCounterpart(page.ID())
		observed <- observation{state: n.State(), public: public}
	}()

	var obs observation
	var got bool
	select {
	case obs = <-observed:
		got = true
	case <-time.After(50 * time.Millisecond):
		// the reader is waiting for the approval to finish
	}

	close(release)
	require.NoError(t, <-done)
	if !got {
		obs = <-observed
	}

	if obs.state == core.Approved {
		assert.True(t, obs.public, "reader saw an approved node without its counterpart")
	}
}

// Of two concurrent approvals, one transitions and materializes, the other
// is the idempotent no-op. Both report Approved, exactly one counterpart is
// written.
func TestConcurrentApprovals(t *testing.T) {

	f := newFixture(t)

	page, err := f.db.CreateNode(f.super, f.home.ID(), "page")
	require.NoError(t, err)
	require.NoError(t, f.db.InsertGrant(f.editor.ID(), page.ID(), core.AllCapabilities, true))

	state, err := f.db.RequestPublish(f.super, page.ID())
	require.NoError(t, err)
	require.Equal(t, core.NeedApprovement, state)

	counting := &countingPublicDB{PublicDB: f.db.PublicDB}
	f.db.PublicDB = counting

	var wg sync.WaitGroup
	states := make([]core.ModerationState, 2)
	errs := make([]error, 2)
	for i := range states {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i], errs[i] = f.db.Approve(f.editor, page.ID())
		}(i)
	}
	wg.Wait()

	for i := range states {
		require.NoError(t, errs[i])
		assert.Equal(t, core.Approved, states[i])
	}
	assert.Equal(t, int32(1), counting.inserts.Load())

	public, err := f.db.HasPublicCounterpart(page.ID())
	require.NoError(t, err)
	assert.True(t, public)
}
