package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/overlay"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/provider"
)

// fakeProvider is an in-memory provider.Client that records every write.
type fakeProvider struct {
	mu      sync.Mutex
	tasks   map[string]provider.Record
	nextID  int
	creates []map[string]any
	updates []map[string]any
	gets    int

	getErr     error
	listErr    error
	updateErrs []error
	// onCreate lets a test shape the created record.
	onCreate func(rec provider.Record)
	// onGet lets a test shape every read.
	onGet func(rec provider.Record)
	// onList runs before a page is listed, without the lock held.
	onList func(page int)
	// listPage replaces the computed listing when set.
	listPage *provider.Page
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{tasks: make(map[string]provider.Record)}
}

func (f *fakeProvider) put(rec provider.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[rec.ID()] = rec
}

func (f *fakeProvider) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates) + len(f.updates)
}

func (f *fakeProvider) GetTask(_ context.Context, id string) (provider.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.tasks[id]
	if !ok {
		return nil, &provider.Error{Op: "get", StatusCode: 404, Body: map[string]any{"detail": "not found"}}
	}
	out := rec.Clone()
	if f.onGet != nil {
		f.onGet(out)
	}
	return out, nil
}

func (f *fakeProvider) CreateTask(_ context.Context, payload any) (provider.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body := toMap(payload)
	f.creates = append(f.creates, body)

	f.nextID++
	rec := provider.Record(body)
	rec["id"] = fmt.Sprintf("st_%d", f.nextID)
	if f.onCreate != nil {
		f.onCreate(rec)
	}
	f.tasks[rec.ID()] = rec
	return rec.Clone(), nil
}

func (f *fakeProvider) UpdateTask(_ context.Context, id string, payload any) (provider.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body := toMap(payload)
	f.updates = append(f.updates, body)

	if len(f.updateErrs) > 0 {
		err := f.updateErrs[0]
		f.updateErrs = f.updateErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	rec, ok := f.tasks[id]
	if !ok {
		return nil, &provider.Error{Op: "update", StatusCode: 404}
	}
	for k, v := range body {
		rec[k] = v
	}
	return rec.Clone(), nil
}

func (f *fakeProvider) DeleteTask(_ context.Context, id string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return nil, &provider.Error{Op: "delete", StatusCode: 404}
	}
	delete(f.tasks, id)
	return nil, nil
}

func (f *fakeProvider) ListTasks(_ context.Context, page, limit int) (*provider.Page, error) {
	if f.onList != nil {
		f.onList(page)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.listPage != nil {
		return f.listPage, nil
	}
	ids := make([]string, 0, len(f.tasks))
	for id := range f.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	from := (page - 1) * limit
	items := []provider.Record{}
	for i := from; i < len(ids) && i < from+limit; i++ {
		items = append(items, f.tasks[ids[i]].Clone())
	}
	pages := (len(ids) + limit - 1) / limit
	return &provider.Page{
		Items:    items,
		Envelope: map[string]any{"total_pages": float64(pages), "page": float64(page)},
		ItemsKey: "items",
	}, nil
}

func toMap(payload any) map[string]any {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type brokenStore struct{ err error }

func (b brokenStore) Get(context.Context, string) (*overlay.Fields, error) { return nil, b.err }
func (b brokenStore) GetMany(context.Context, []string) (map[string]overlay.Fields, error) {
	return nil, b.err
}
func (b brokenStore) List(context.Context) (map[string]overlay.Fields, error) { return nil, b.err }
func (b brokenStore) Upsert(context.Context, string, overlay.Fields) error    { return b.err }
func (b brokenStore) Delete(context.Context, string) error                    { return b.err }
