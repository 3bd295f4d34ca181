package service_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/irakobi/wildlife-conservation-backend/internal/adapters/kobo"
	"github.com/irakobi/wildlife-conservation-backend/internal/adapters/repository"
	service "github.com/irakobi/wildlife-conservation-backend/internal/app"
	"github.com/irakobi/wildlife-conservation-backend/internal/domain/form"
	"github.com/irakobi/wildlife-conservation-backend/internal/domain/model"
	"github.com/irakobi/wildlife-conservation-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeProvider is an in-memory stand-in for the Kobo client.
type fakeProvider struct {
	mu           sync.Mutex
	defs         map[string]*form.Definition
	getFormCalls int
	submitCalls  int
	pingErr      error
	submitErr    error
}

func newFakeProvider(defs ...*form.Definition) *fakeProvider {
	p := &fakeProvider{defs: make(map[string]*form.Definition)}
	for _, def := range defs {
		p.defs[def.UID] = def
	}
	return p
}

func (p *fakeProvider) Ping(context.Context) error { return p.pingErr }

func (p *fakeProvider) ListForms(context.Context, int, int) ([]form.Definition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]form.Definition, 0, len(p.defs))
	for _, def := range p.defs {
		out = append(out, *def)
	}
	return out, nil
}

func (p *fakeProvider) GetForm(_ context.Context, uid string) (*form.Definition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getFormCalls++
	def, ok := p.defs[uid]
	if !ok {
		return nil, &kobo.APIError{StatusCode: 404, Kind: kobo.ErrNotFound}
	}
	return def, nil
}

func (p *fakeProvider) SubmitData(context.Context, string, map[string]any) (*kobo.SubmitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitCalls++
	if p.submitErr != nil {
		return nil, p.submitErr
	}
	return &kobo.SubmitResult{ID: 1000 + p.submitCalls}, nil
}

func sightingDefinition() *form.Definition {
	return &form.Definition{
		UID:      "aFormUID123",
		Name:     "sighting_report",
		Deployed: true,
		Content: map[string]any{
			"survey": []any{
				map[string]any{"type": "text", "name": "species", "label": "Species", "required": true},
				map[string]any{"type": "integer", "name": "count", "label": "Animal count"},
				map[string]any{
					"type": "select_one", "name": "habitat", "label": "Habitat",
					"select_from_list_name": "habitats",
				},
			},
			"choices": []any{
				map[string]any{"list_name": "habitats", "name": "savanna", "label": "Savanna"},
				map[string]any{"list_name": "habitats", "name": "forest", "label": "Forest"},
			},
			"settings": map[string]any{"form_title": "Sighting Report"},
		},
	}
}

func startService(t *testing.T, provider *fakeProvider, store repository.Store) *service.Service {
	t.Helper()
	svc := service.New(
		service.WithProvider(provider),
		service.WithStore(store),
		service.WithWorkerCount(1),
		service.WithQueueSize(100),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	return svc
}

func waitForSyncStatus(t *testing.T, store repository.Store, id string, want model.SyncStatus) *model.Submission {
	t.Helper()
	ctx := context.Background()
	deadline := time.After(2 * time.Second)
	for {
		sub, err := store.Get(ctx, id)
		if err == nil && sub.SyncStatus == want {
			return sub
		}
		select {
		case <-deadline:
			t.Fatalf("submission %s never reached sync status %s", id, want)
			return nil
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestServiceForms(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		provider := newFakeProvider(
			sightingDefinition(),
			&form.Definition{UID: "aFormNoContent", Name: "draft"},
		)
		store := repository.NewMemoryStore()
		svc := startService(t, provider, store)
		Reset(svc.Stop)

		Convey("When listing forms", func() {
			schemas, err := svc.ListForms(ctx, 10, 0)

			Convey("Then undeployed assets without content are skipped", func() {
				So(err, ShouldBeNil)
				So(len(schemas), ShouldEqual, 1)
				So(schemas[0].FormID, ShouldEqual, "aFormUID123")
				So(schemas[0].FormTitle, ShouldEqual, "Sighting Report")
				So(len(schemas[0].Questions), ShouldEqual, 3)
			})
		})

		Convey("When fetching a schema twice", func() {
			first, err := svc.GetSchema(ctx, "aFormUID123")
			So(err, ShouldBeNil)
			second, err := svc.GetSchema(ctx, "aFormUID123")
			So(err, ShouldBeNil)

			Convey("Then the second call is served from cache", func() {
				So(provider.getFormCalls, ShouldEqual, 1)
				So(second, ShouldResemble, first)
			})
		})

		Convey("When fetching an unknown form", func() {
			_, err := svc.GetSchema(ctx, "missing")

			So(errors.Is(err, kobo.ErrNotFound), ShouldBeTrue)
		})

		Convey("When summarizing a form", func() {
			summary, err := svc.GetFormSummary(ctx, "aFormUID123")

			Convey("Then question counts are aggregated", func() {
				So(err, ShouldBeNil)
				So(summary.TotalQuestions, ShouldEqual, 3)
				So(summary.RequiredQuestions, ShouldEqual, 1)
			})
		})
	})
}

func TestServiceCreateSubmission(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		provider := newFakeProvider(sightingDefinition())
		store := repository.NewMemoryStore()
		svc := startService(t, provider, store)
		Reset(svc.Stop)

		Convey("When creating a valid submission", func() {
			raw := map[string]any{
				"_uuid":   "inst-1",
				"species": "elephant",
				"count":   "12",
				"habitat": "savanna",
			}
			sub, err := svc.CreateSubmission(ctx, "aFormUID123", raw, "ranger-7", "mobile")

			Convey("Then it is stored with parsed answers", func() {
				So(err, ShouldBeNil)
				So(sub.ID, ShouldNotBeEmpty)
				So(sub.InstanceID, ShouldEqual, "inst-1")
				So(sub.Status, ShouldEqual, model.StatusSubmitted)
				So(sub.ParsedData["count"], ShouldEqual, int64(12))
				So(sub.SubmittedBy, ShouldEqual, "ranger-7")

				got, err := store.Get(ctx, sub.ID)
				So(err, ShouldBeNil)
				So(got.FormUID, ShouldEqual, "aFormUID123")
			})

			Convey("Then a worker pushes it to the provider", func() {
				synced := waitForSyncStatus(t, store, sub.ID, model.SyncSynced)
				So(synced.ProviderID, ShouldNotBeEmpty)
			})
		})

		Convey("When a required answer is missing", func() {
			_, err := svc.CreateSubmission(ctx, "aFormUID123", map[string]any{"count": "3"}, "", "api")

			Convey("Then a validation error lists the fields", func() {
				var verr *service.ValidationError
				So(errors.As(err, &verr), ShouldBeTrue)
				So(verr.FormUID, ShouldEqual, "aFormUID123")
				So(verr.Fields["species"], ShouldResemble, []string{"Species is required"})
			})
		})

		Convey("When the same instance is submitted twice", func() {
			raw := map[string]any{"_uuid": "inst-1", "species": "lion"}
			_, err := svc.CreateSubmission(ctx, "aFormUID123", raw, "", "mobile")
			So(err, ShouldBeNil)

			Convey("And the retry carries the same _uuid", func() {
				_, err := svc.CreateSubmission(ctx, "aFormUID123", raw, "", "mobile")
				So(errors.Is(err, service.ErrDuplicateSubmission), ShouldBeTrue)
			})

			Convey("And the retry reports it as meta/instanceID", func() {
				retry := map[string]any{"meta/instanceID": "uuid:inst-1", "species": "lion"}
				_, err := svc.CreateSubmission(ctx, "aFormUID123", retry, "", "mobile")
				So(errors.Is(err, service.ErrDuplicateSubmission), ShouldBeTrue)
			})
		})

		Convey("When the payload carries no instance ID", func() {
			raw := map[string]any{"species": "rhino"}
			first, err := svc.CreateSubmission(ctx, "aFormUID123", raw, "", "web")
			So(err, ShouldBeNil)
			second, err := svc.CreateSubmission(ctx, "aFormUID123", map[string]any{"species": "rhino"}, "", "web")

			Convey("Then each submission gets its own identity", func() {
				So(err, ShouldBeNil)
				So(first.InstanceID, ShouldNotBeEmpty)
				So(second.InstanceID, ShouldNotEqual, first.InstanceID)
			})
		})

		Convey("When the form does not exist", func() {
			_, err := svc.CreateSubmission(ctx, "missing", map[string]any{"species": "x"}, "", "api")

			So(errors.Is(err, kobo.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestServiceSubmissionLifecycle(t *testing.T) {
	Convey("Given a service with stored submissions", t, func() {
		ctx := context.Background()
		provider := newFakeProvider(sightingDefinition())
		store := repository.NewMemoryStore()
		svc := startService(t, provider, store)
		Reset(svc.Stop)

		sub, err := svc.CreateSubmission(ctx, "aFormUID123", map[string]any{
			"_uuid":   "inst-1",
			"species": "elephant",
		}, "ranger-7", "mobile")
		So(err, ShouldBeNil)

		Convey("When updating the review status", func() {
			updated, err := svc.UpdateSubmissionStatus(ctx, sub.ID, model.StatusVerified)

			Convey("Then the new state is persisted", func() {
				So(err, ShouldBeNil)
				So(updated.Status, ShouldEqual, model.StatusVerified)
			})
		})

		Convey("When updating with an unknown status", func() {
			_, err := svc.UpdateSubmissionStatus(ctx, sub.ID, model.Status("archived"))

			So(errors.Is(err, service.ErrInvalidStatus), ShouldBeTrue)
		})

		Convey("When updating an unknown submission", func() {
			_, err := svc.UpdateSubmissionStatus(ctx, "missing", model.StatusVerified)

			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When listing by form", func() {
			subs, err := svc.ListSubmissions(ctx, repository.ListFilter{FormUID: "aFormUID123"})

			Convey("Then the stored submission comes back", func() {
				So(err, ShouldBeNil)
				So(len(subs), ShouldEqual, 1)
				So(subs[0].ID, ShouldEqual, sub.ID)
			})
		})
	})
}

func TestServiceSyncPending(t *testing.T) {
	Convey("Given a store with submissions awaiting sync", t, func() {
		ctx := context.Background()
		provider := newFakeProvider(sightingDefinition())
		store := repository.NewMemoryStore()

		// Seed directly so the submissions bypass the create-time enqueue.
		for _, id := range []string{"sub-1", "sub-2"} {
			err := store.Create(ctx, &model.Submission{
				ID:          id,
				FormUID:     "aFormUID123",
				ParsedData:  map[string]any{"species": "lion"},
				Status:      model.StatusSubmitted,
				SyncStatus:  model.SyncPending,
				SubmittedAt: time.Now().UTC(),
			})
			So(err, ShouldBeNil)
		}

		svc := startService(t, provider, store)
		Reset(svc.Stop)

		Convey("When requesting a sync pass", func() {
			queued, err := svc.SyncPending(ctx, 10)

			Convey("Then the pending submissions are queued and pushed", func() {
				So(err, ShouldBeNil)
				So(queued, ShouldEqual, 2)
				waitForSyncStatus(t, store, "sub-1", model.SyncSynced)
				waitForSyncStatus(t, store, "sub-2", model.SyncSynced)
			})
		})
	})
}

func TestServiceStats(t *testing.T) {
	Convey("Given a running service", t, func() {
		ctx := context.Background()
		provider := newFakeProvider(sightingDefinition())
		store := repository.NewMemoryStore()
		svc := startService(t, provider, store)
		Reset(svc.Stop)

		_, err := svc.CreateSubmission(ctx, "aFormUID123", map[string]any{
			"_uuid":   "inst-1",
			"species": "elephant",
		}, "", "mobile")
		So(err, ShouldBeNil)

		Convey("When reading stats", func() {
			stats := svc.GetStats()

			Convey("Then runtime counters are exposed", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["workerCount"], ShouldEqual, 1)
				So(stats["totalSubmissions"], ShouldEqual, 1)
				So(stats["cachedSchemas"], ShouldEqual, 1)
				So(stats["seenInstances"], ShouldEqual, 1)
			})
		})

		Convey("When pinging the provider", func() {
			So(svc.PingProvider(ctx), ShouldBeNil)

			provider.pingErr = errors.New("unreachable")
			So(svc.PingProvider(ctx), ShouldNotBeNil)
		})
	})
}
