package services_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/storefront/app/models"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/pkg/mail"
	"github.com/shashiranjanraj/storefront/pkg/queue"
	"github.com/shashiranjanraj/storefront/pkg/storage"
)

// ─── Products ─────────────────────────────────────────────────────────────────

type fakeProducts struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]models.Product
	finds int
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{items: map[primitive.ObjectID]models.Product{}}
}

func (f *fakeProducts) add(p models.Product) primitive.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	f.items[p.ID] = p
	return p.ID
}

func (f *fakeProducts) Create(_ context.Context, p *models.Product) error {
	p.ID = f.add(*p)
	return nil
}

func (f *fakeProducts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	p.Variants = append([]models.Variant(nil), p.Variants...)
	return &p, nil
}

func (f *fakeProducts) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Product{}
	for _, id := range ids {
		if p, ok := f.items[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) Find(_ context.Context, flt repositories.ProductFilter) ([]models.Product, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	out := []models.Product{}
	for _, p := range f.items {
		if flt.ActiveOnly && !p.IsActive {
			continue
		}
		if flt.Featured != nil && p.IsFeatured != *flt.Featured {
			continue
		}
		if flt.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(flt.Query)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (f *fakeProducts) All(ctx context.Context) ([]models.Product, error) {
	out, _, err := f.Find(ctx, repositories.ProductFilter{})
	return out, err
}

func (f *fakeProducts) Replace(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[p.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.items[p.ID] = *p
	return nil
}

func (f *fakeProducts) SetFlag(_ context.Context, id primitive.ObjectID, field string, v bool) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if field == "isActive" {
		p.IsActive = v
	} else {
		p.IsFeatured = v
	}
	f.items[id] = p
	return &p, nil
}

func (f *fakeProducts) AddImages(_ context.Context, id primitive.ObjectID, urls []string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	p.Images = append(p.Images, urls...)
	f.items[id] = p
	return &p, nil
}

func (f *fakeProducts) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

// ─── Carts ────────────────────────────────────────────────────────────────────

type fakeCarts struct {
	mu    sync.Mutex
	carts map[primitive.ObjectID]models.Cart
	// conflicts makes the next n writes fail with ErrConflict.
	conflicts int
	// beforeClear runs inside ClearForOrder before the version check.
	beforeClear func()
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{carts: map[primitive.ObjectID]models.Cart{}}
}

func copyCart(c models.Cart) *models.Cart {
	c.CartItems = append([]models.CartItem{}, c.CartItems...)
	return &c
}

func (f *fakeCarts) get(userID primitive.ObjectID) *models.Cart {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[userID]
	if !ok {
		return nil
	}
	return copyCart(c)
}

func (f *fakeCarts) FindByUser(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	if c := f.get(userID); c != nil {
		return c, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCarts) Save(_ context.Context, c *models.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflicts > 0 {
		f.conflicts--
		return repositories.ErrConflict
	}
	stored, exists := f.carts[c.UserID]
	if c.ID.IsZero() {
		if exists {
			return repositories.ErrConflict
		}
		c.ID = primitive.NewObjectID()
		c.Version = 1
	} else {
		if !exists || stored.Version != c.Version {
			return repositories.ErrConflict
		}
		c.Version++
	}
	f.carts[c.UserID] = *copyCart(*c)
	return nil
}

func (f *fakeCarts) ClearForOrder(_ context.Context, c *models.Cart, orderID primitive.ObjectID) error {
	if f.beforeClear != nil {
		f.beforeClear()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.carts[c.UserID]
	if !ok || stored.Version != c.Version {
		return repositories.ErrConflict
	}
	c.Clear()
	c.Version++
	c.LastOrderID = &orderID
	f.carts[c.UserID] = *copyCart(*c)
	return nil
}

func (f *fakeCarts) HasLastOrder(_ context.Context, userID, orderID primitive.ObjectID) (bool, error) {
	c := f.get(userID)
	return c != nil && c.LastOrderID != nil && *c.LastOrderID == orderID, nil
}

// ─── Orders ───────────────────────────────────────────────────────────────────

type fakeOrders struct {
	mu         sync.Mutex
	orders     map[primitive.ObjectID]models.Order
	failCreate error
	// beforeUpdate runs ahead of the status compare-and-set.
	beforeUpdate func()
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[primitive.ObjectID]models.Order{}}
}

func (f *fakeOrders) put(o models.Order) primitive.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	f.orders[o.ID] = o
	return o.ID
}

func (f *fakeOrders) raw(id primitive.ObjectID) (models.Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	return o, ok
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *fakeOrders) Create(_ context.Context, o *models.Order) error {
	if f.failCreate != nil {
		return f.failCreate
	}
	o.ID = f.put(*o)
	return nil
}

func (f *fakeOrders) Confirm(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return repositories.ErrNotFound
	}
	o.Confirmed = true
	f.orders[id] = o
	return nil
}

func (f *fakeOrders) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.orders, id)
	return nil
}

func (f *fakeOrders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	o, ok := f.raw(id)
	if !ok || !o.Confirmed {
		return nil, repositories.ErrNotFound
	}
	return &o, nil
}

func (f *fakeOrders) FindByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		if o.UserID == userID && o.Confirmed {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) FindAll(_ context.Context, status models.OrderStatus, _, _ int) ([]models.Order, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		if o.Confirmed && (status == "" || o.Status == status) {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrders) FindDelivered(_ context.Context, orderID, userID, productID primitive.ObjectID) (*models.Order, error) {
	o, ok := f.raw(orderID)
	if !ok || !o.Confirmed || o.UserID != userID || o.Status != models.StatusDelivered || !o.Contains(productID) {
		return nil, repositories.ErrNotFound
	}
	return &o, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id primitive.ObjectID, from models.OrderStatus, ch models.StatusChange) (*models.Order, error) {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || !o.Confirmed || o.Status != from {
		return nil, repositories.ErrConflict
	}
	ch.ChangedAt = time.Now().UTC()
	o.Status = ch.Status
	o.StatusHistory = append(append([]models.StatusChange{}, o.StatusHistory...), ch)
	f.orders[id] = o
	return &o, nil
}

func (f *fakeOrders) FindDrafts(_ context.Context, before time.Time) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		if !o.Confirmed && o.CreatedAt.Before(before) {
			out = append(out, o)
		}
	}
	return out, nil
}

// ─── Reviews ──────────────────────────────────────────────────────────────────

type fakeReviews struct {
	mu      sync.Mutex
	reviews map[primitive.ObjectID]models.Review
}

func newFakeReviews() *fakeReviews {
	return &fakeReviews{reviews: map[primitive.ObjectID]models.Review{}}
}

func (f *fakeReviews) Create(_ context.Context, r *models.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.reviews {
		if x.UserID == r.UserID && x.OrderID == r.OrderID && x.ProductID == r.ProductID {
			return repositories.ErrDuplicate
		}
	}
	r.ID = primitive.NewObjectID()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	f.reviews[r.ID] = *r
	return nil
}

func (f *fakeReviews) FindByID(_ context.Context, id primitive.ObjectID) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	r.Votes = append([]models.Vote{}, r.Votes...)
	return &r, nil
}

func (f *fakeReviews) filter(keep func(models.Review) bool) []models.Review {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Review{}
	for _, r := range f.reviews {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeReviews) FindByProduct(_ context.Context, pid primitive.ObjectID) ([]models.Review, error) {
	return f.filter(func(r models.Review) bool { return r.ProductID == pid && !r.Hidden }), nil
}

func (f *fakeReviews) FindByUser(_ context.Context, uid primitive.ObjectID) ([]models.Review, error) {
	return f.filter(func(r models.Review) bool { return r.UserID == uid }), nil
}

func (f *fakeReviews) FindReported(context.Context) ([]models.Review, error) {
	return f.filter(func(r models.Review) bool { return r.Reported }), nil
}

func (f *fakeReviews) SaveVotes(_ context.Context, r *models.Review, prev time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.reviews[r.ID]
	if !ok || !stored.UpdatedAt.Equal(prev) {
		return repositories.ErrConflict
	}
	r.UpdatedAt = prev.Add(time.Millisecond)
	stored.Votes = append([]models.Vote{}, r.Votes...)
	stored.HelpfulVotes, stored.NotHelpfulVotes = r.HelpfulVotes, r.NotHelpfulVotes
	stored.UpdatedAt = r.UpdatedAt
	f.reviews[r.ID] = stored
	return nil
}

func (f *fakeReviews) mutate(id primitive.ObjectID, fn func(*models.Review) error) (*models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if err := fn(&r); err != nil {
		return nil, err
	}
	f.reviews[id] = r
	return &r, nil
}

func (f *fakeReviews) SetReply(_ context.Context, id primitive.ObjectID, reply models.Reply) (*models.Review, error) {
	return f.mutate(id, func(r *models.Review) error { r.Reply = &reply; return nil })
}

func (f *fakeReviews) SetHidden(_ context.Context, id primitive.ObjectID, hidden bool) (*models.Review, error) {
	return f.mutate(id, func(r *models.Review) error { r.Hidden = hidden; return nil })
}

func (f *fakeReviews) AddReport(_ context.Context, id primitive.ObjectID, rep models.Report) (*models.Review, error) {
	return f.mutate(id, func(r *models.Review) error {
		if r.ReportedBy(rep.UserID) {
			return repositories.ErrDuplicate
		}
		r.Reports = append(r.Reports, rep)
		r.Reported = true
		return nil
	})
}

func (f *fakeReviews) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reviews[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.reviews, id)
	return nil
}

// ─── Users & delivery ─────────────────────────────────────────────────────────

type fakeUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{users: map[primitive.ObjectID]models.User{}} }

func (f *fakeUsers) add(u models.User) primitive.ObjectID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	f.users[u.ID] = u
	return u.ID
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	for _, x := range f.users {
		if x.Email == u.Email || x.Username == u.Username {
			f.mu.Unlock()
			return repositories.ErrDuplicate
		}
	}
	f.mu.Unlock()
	u.ID = f.add(*u)
	return nil
}

func (f *fakeUsers) find(match func(models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.ID == id })
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.Email == email })
}

func (f *fakeUsers) FindByLogin(_ context.Context, ident string) (*models.User, error) {
	return f.find(func(u models.User) bool { return u.Email == ident || u.Username == ident })
}

func (f *fakeUsers) List(context.Context, int, int) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUsers) Update(_ context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	for k, v := range set {
		switch k {
		case "username":
			for _, x := range f.users {
				if x.ID != id && x.Username == v.(string) {
					return nil, repositories.ErrDuplicate
				}
			}
			u.Username = v.(string)
		case "emailVerified":
			u.EmailVerified = v.(bool)
		case "confirmationCode":
			u.ConfirmationCode = v.(string)
		case "confirmationExpires":
			u.ConfirmationExpires = v.(time.Time)
		case "confirmAttempts":
			u.ConfirmAttempts = v.(int)
		case "profilePicture":
			u.ProfilePicture = v.(string)
		}
	}
	f.users[id] = u
	return &u, nil
}

func (f *fakeUsers) IncConfirmAttempts(_ context.Context, id primitive.ObjectID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return 0, repositories.ErrNotFound
	}
	u.ConfirmAttempts++
	f.users[id] = u
	return u.ConfirmAttempts, nil
}

func (f *fakeUsers) Delete(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) AddToWishlist(_ context.Context, id, pid primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	for _, w := range u.Wishlist {
		if w == pid {
			return &u, nil
		}
	}
	u.Wishlist = append(u.Wishlist, pid)
	f.users[id] = u
	return &u, nil
}

func (f *fakeUsers) RemoveFromWishlist(_ context.Context, id, pid primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	kept := []primitive.ObjectID{}
	for _, w := range u.Wishlist {
		if w != pid {
			kept = append(kept, w)
		}
	}
	u.Wishlist = kept
	f.users[id] = u
	return &u, nil
}

type fakeDelivery struct {
	mu sync.Mutex
	m  map[primitive.ObjectID]models.DeliveryDetails
}

func newFakeDelivery() *fakeDelivery {
	return &fakeDelivery{m: map[primitive.ObjectID]models.DeliveryDetails{}}
}

func (f *fakeDelivery) FindByUser(_ context.Context, uid primitive.ObjectID) (*models.DeliveryDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.m[uid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &d, nil
}

func (f *fakeDelivery) Upsert(_ context.Context, d *models.DeliveryDetails) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[d.UserID] = *d
	return nil
}

// ─── Collaborators ────────────────────────────────────────────────────────────

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeCaptcha struct{ err error }

func (c fakeCaptcha) Verify(context.Context, string, string) error { return c.err }

type fakeJobs struct {
	mu   sync.Mutex
	jobs []queue.Job
}

func (j *fakeJobs) Dispatch(_ context.Context, job queue.Job) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jobs = append(j.jobs, job)
	return nil
}

func (j *fakeJobs) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.jobs)
}

var errBoom = errors.New("boom")

// pngHeader is enough of a PNG for content sniffing.
const pngHeader = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"

func newDisk(t *testing.T) *storage.LocalDisk {
	t.Helper()
	d, err := storage.NewLocalDisk(t.TempDir(), "http://test/storage")
	require.NoError(t, err)
	return d
}
