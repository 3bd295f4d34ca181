package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/irakobi/wildlife-conservation-backend/internal/adapters/kobo"
	"github.com/irakobi/wildlife-conservation-backend/internal/adapters/mq/queue"
	"github.com/irakobi/wildlife-conservation-backend/internal/adapters/repository"
	"github.com/irakobi/wildlife-conservation-backend/internal/domain/model"
	"github.com/irakobi/wildlife-conservation-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakePusher struct {
	mu       sync.Mutex
	calls    int
	lastUID  string
	lastData map[string]any
	result   *kobo.SubmitResult
	err      error
}

func (p *fakePusher) SubmitData(_ context.Context, uid string, data map[string]any) (*kobo.SubmitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastUID = uid
	p.lastData = data
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

type fakeStore struct {
	mu          sync.Mutex
	submissions map[string]*model.Submission
	synced      map[string]string // submission ID -> provider ID
	failed      map[string]string // submission ID -> sync error
}

func newFakeStore(subs ...*model.Submission) *fakeStore {
	s := &fakeStore{
		submissions: make(map[string]*model.Submission),
		synced:      make(map[string]string),
		failed:      make(map[string]string),
	}
	for _, sub := range subs {
		s.submissions[sub.ID] = sub
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, id string) (*model.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return sub, nil
}

func (s *fakeStore) MarkSynced(_ context.Context, id, providerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced[id] = providerID
	return nil
}

func (s *fakeStore) MarkSyncFailed(_ context.Context, id, syncErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = syncErr
	return nil
}

func TestSyncWorkerProcessTask(t *testing.T) {
	Convey("Given a sync worker", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))

		Convey("When processing a pending submission", func() {
			sub := &model.Submission{
				ID:         "sub-1",
				FormUID:    "aFormUID123",
				InstanceID: "inst-1",
				ParsedData: map[string]any{"species": "elephant"},
				SyncStatus: model.SyncPending,
			}
			store := newFakeStore(sub)
			pusher := &fakePusher{result: &kobo.SubmitResult{ID: 42}}
			w := NewSyncWorker(q, pusher, store)

			err := w.processTask(ctx, Task{SubmissionID: "sub-1", FormUID: "aFormUID123"})

			Convey("Then it pushes to the provider and records success", func() {
				So(err, ShouldBeNil)
				So(pusher.calls, ShouldEqual, 1)
				So(pusher.lastUID, ShouldEqual, "aFormUID123")
				So(store.synced["sub-1"], ShouldEqual, "42")
				So(store.failed, ShouldBeEmpty)
			})

			Convey("Then the pushed payload carries the instance ID", func() {
				So(pusher.lastData["_uuid"], ShouldEqual, "inst-1")
				So(pusher.lastData["species"], ShouldEqual, "elephant")
			})
		})

		Convey("When the submission was already synced", func() {
			sub := &model.Submission{
				ID:         "sub-1",
				FormUID:    "aFormUID123",
				SyncStatus: model.SyncSynced,
			}
			store := newFakeStore(sub)
			pusher := &fakePusher{result: &kobo.SubmitResult{ID: 42}}
			w := NewSyncWorker(q, pusher, store)

			err := w.processTask(ctx, Task{SubmissionID: "sub-1"})

			Convey("Then the provider is not called again", func() {
				So(err, ShouldBeNil)
				So(pusher.calls, ShouldEqual, 0)
			})
		})

		Convey("When parsed data is empty", func() {
			sub := &model.Submission{
				ID:         "sub-1",
				FormUID:    "aFormUID123",
				RawData:    map[string]any{"species": "lion"},
				SyncStatus: model.SyncPending,
			}
			store := newFakeStore(sub)
			pusher := &fakePusher{result: &kobo.SubmitResult{ID: 7}}
			w := NewSyncWorker(q, pusher, store)

			err := w.processTask(ctx, Task{SubmissionID: "sub-1"})

			Convey("Then the raw payload is pushed instead", func() {
				So(err, ShouldBeNil)
				So(pusher.lastData["species"], ShouldEqual, "lion")
			})
		})

		Convey("When the provider push fails", func() {
			sub := &model.Submission{
				ID:         "sub-1",
				FormUID:    "aFormUID123",
				ParsedData: map[string]any{"species": "rhino"},
				SyncStatus: model.SyncPending,
			}
			store := newFakeStore(sub)
			pusher := &fakePusher{err: errors.New("provider unavailable")}
			w := NewSyncWorker(q, pusher, store)

			err := w.processTask(ctx, Task{SubmissionID: "sub-1"})

			Convey("Then the failure is recorded on the submission", func() {
				So(err, ShouldNotBeNil)
				So(store.failed["sub-1"], ShouldEqual, "provider unavailable")
				So(store.synced, ShouldBeEmpty)
			})
		})

		Convey("When the submission cannot be loaded", func() {
			store := newFakeStore()
			pusher := &fakePusher{result: &kobo.SubmitResult{ID: 1}}
			w := NewSyncWorker(q, pusher, store)

			err := w.processTask(ctx, Task{SubmissionID: "missing"})

			Convey("Then an error is returned without a push", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(pusher.calls, ShouldEqual, 0)
			})
		})
	})
}

func TestSyncWorkerRun(t *testing.T) {
	Convey("Given a running worker", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		sub := &model.Submission{
			ID:         "sub-1",
			FormUID:    "aFormUID123",
			ParsedData: map[string]any{"species": "giraffe"},
			SyncStatus: model.SyncPending,
		}
		store := newFakeStore(sub)
		pusher := &fakePusher{result: &kobo.SubmitResult{ID: 99}}
		w := NewSyncWorker(q, pusher, store, WithName("test-worker"))

		go w.Run(ctx)

		Convey("When a task is enqueued", func() {
			So(q.Enqueue(ctx, Task{SubmissionID: "sub-1", FormUID: "aFormUID123"}), ShouldBeTrue)

			Convey("Then the submission is drained and synced", func() {
				deadline := time.After(2 * time.Second)
				for {
					store.mu.Lock()
					_, done := store.synced["sub-1"]
					store.mu.Unlock()
					if done {
						break
					}
					select {
					case <-deadline:
						t.Fatal("submission was not synced in time")
					case <-time.After(5 * time.Millisecond):
					}
				}

				shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
				defer cancel()
				So(w.Shutdown(shutdownCtx), ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a worker pool", t, func() {
		ctx := context.Background()

		Convey("When created with an explicit worker count", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(10))
			pool := NewPool(3, q, &fakePusher{result: &kobo.SubmitResult{ID: 1}}, newFakeStore())

			Convey("Then the pool holds that many workers", func() {
				So(pool.Size(), ShouldEqual, 3)
			})
		})

		Convey("When the requested count exceeds the cap", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(10))
			pool := NewPool(1000, q, &fakePusher{result: &kobo.SubmitResult{ID: 1}}, newFakeStore())

			So(pool.Size(), ShouldEqual, 64)
		})

		Convey("When the requested count is not positive", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(10))
			pool := NewPool(0, q, &fakePusher{result: &kobo.SubmitResult{ID: 1}}, newFakeStore())

			Convey("Then a bounded default applies", func() {
				So(pool.Size(), ShouldBeGreaterThan, 0)
				So(pool.Size(), ShouldBeLessThanOrEqualTo, defaultWorkerCount)
			})
		})

		Convey("When the pool drains tasks and shuts down", func() {
			q := queue.NewInMemoryQueue(queue.WithCapacity(10))
			subs := []*model.Submission{
				{ID: "sub-1", FormUID: "f1", ParsedData: map[string]any{"a": 1}, SyncStatus: model.SyncPending},
				{ID: "sub-2", FormUID: "f1", ParsedData: map[string]any{"a": 2}, SyncStatus: model.SyncPending},
				{ID: "sub-3", FormUID: "f1", ParsedData: map[string]any{"a": 3}, SyncStatus: model.SyncPending},
			}
			store := newFakeStore(subs...)
			pool := NewPool(2, q, &fakePusher{result: &kobo.SubmitResult{ID: 5}}, store)

			pool.Start(ctx)
			for _, sub := range subs {
				So(q.Enqueue(ctx, Task{SubmissionID: sub.ID, FormUID: sub.FormUID}), ShouldBeTrue)
			}

			deadline := time.After(2 * time.Second)
			for {
				store.mu.Lock()
				done := len(store.synced) == len(subs)
				store.mu.Unlock()
				if done {
					break
				}
				select {
				case <-deadline:
					t.Fatal("pool did not drain tasks in time")
				case <-time.After(5 * time.Millisecond):
				}
			}

			So(pool.Shutdown(ctx), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
		})
	})
}
