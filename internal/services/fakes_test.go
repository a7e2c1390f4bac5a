package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tko-aly/usersvc/internal/store"
	"github.com/tko-aly/usersvc/types"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[int]types.User
	nextID  int
	updates int
	failGet error
}

func newFakeUserRepo(users ...types.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[int]types.User{}, nextID: 1}
	for _, u := range users {
		r.users[u.ID] = u
		if u.ID >= r.nextID {
			r.nextID = u.ID + 1
		}
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet != nil {
		return types.User{}, r.failGet
	}
	u, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) find(match func(types.User) bool) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) List(_ context.Context, offset, limit int) ([]types.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []types.User
	for _, u := range r.users {
		if !u.Deleted {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok || existing.Deleted {
		return types.User{}, store.ErrNotFound
	}
	r.updates++
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) MarkDeleted(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.Deleted {
		return store.ErrNotFound
	}
	u.Deleted = true
	r.users[id] = u
	return nil
}

type fakeServiceRepo struct {
	services map[string]types.Service
}

func newFakeServiceRepo(services ...types.Service) *fakeServiceRepo {
	r := &fakeServiceRepo{services: map[string]types.Service{}}
	for _, s := range services {
		r.services[s.ServiceName] = s
	}
	return r
}

func (r *fakeServiceRepo) GetByName(_ context.Context, name string) (types.Service, error) {
	s, ok := r.services[name]
	if !ok {
		return types.Service{}, store.ErrNotFound
	}
	return s, nil
}

func (r *fakeServiceRepo) List(context.Context) ([]types.Service, error) {
	out := make([]types.Service, 0, len(r.services))
	for _, s := range r.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceName < out[j].ServiceName })
	return out, nil
}

func (r *fakeServiceRepo) Create(_ context.Context, service types.Service) (types.Service, error) {
	if _, ok := r.services[service.ServiceName]; ok {
		return types.Service{}, store.ErrConflict
	}
	service.ID = len(r.services) + 1
	r.services[service.ServiceName] = service
	return service, nil
}

func (r *fakeServiceRepo) Delete(_ context.Context, name string) error {
	if _, ok := r.services[name]; !ok {
		return store.ErrNotFound
	}
	delete(r.services, name)
	return nil
}

type recordingPublisher struct {
	events []types.UserEvent
	err    error
}

func (p *recordingPublisher) PublishUserEvent(_ context.Context, event types.UserEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type recordingReceipts struct {
	receipts []types.DisclosureReceipt
	err      error
}

func (r *recordingReceipts) SaveReceipt(_ context.Context, receipt types.DisclosureReceipt) error {
	if r.err != nil {
		return r.err
	}
	r.receipts = append(r.receipts, receipt)
	return nil
}

type failingPersister struct {
	err   error
	calls int
}

func (p *failingPersister) PersistFields(context.Context, int, map[string]any, []string) (types.User, error) {
	p.calls++
	return types.User{}, p.err
}

var errBackend = errors.New("backend unavailable")
