package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/vaccination-booking/internal/model"
	"github.com/iliyamo/vaccination-booking/internal/query"
)


type memData struct {
	companies map[uint64]model.Company
	bookings  map[uint64]model.Booking
	users     map[uint64]model.User
	tokens    map[string]model.RefreshToken
	seq       map[string]uint64
}

func newMemData() *memData {
	return &memData{
		companies: map[uint64]model.Company{},
		bookings:  map[uint64]model.Booking{},
		users:     map[uint64]model.User{},
		tokens:    map[string]model.RefreshToken{},
		seq:       map[string]uint64{},
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.companies {
		c.companies[k] = v
	}
	for k, v := range d.bookings {
		c.bookings[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.tokens {
		c.tokens[k] = v
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	return c
}

func (d *memData) next(table string) uint64 {
	d.seq[table]++
	return d.seq[table]
}

// MemoryStore is an in-process Store. Transactions are serialized and work
// on a copy of the data that replaces the original on commit.
type MemoryStore struct {
	mu   *sync.Mutex
	data *memData
	inTx bool
	now  func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:   &sync.Mutex{},
		data: newMemData(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// lock guards a single operation. Inside a transaction the lock is already
// held for the whole unit of work.
func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) Companies() CompanyStore { return memCompanies{s} }
func (s *MemoryStore) Bookings() BookingStore  { return memBookings{s} }
func (s *MemoryStore) Users() UserStore        { return memUsers{s} }
func (s *MemoryStore) Tokens() TokenStore      { return memTokens{s} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &MemoryStore{mu: s.mu, data: s.data.clone(), inTx: true, now: s.now}
	if err := fn(tx); err != nil {
		return err
	}
	*s.data = *tx.data
	return nil
}

// ---- companies ----

type memCompanies struct{ s *MemoryStore }

func (m memCompanies) match(c model.Company, f query.Filter) bool {
	for _, cond := range f {
		v := companyField(c, cond.Field.Name)
		ok := false
		for _, want := range cond.Values {
			cmp := compareValues(cond.Field.Kind, v, want)
			switch cond.Op {
			case query.OpGt:
				ok = cmp > 0
			case query.OpGte:
				ok = cmp >= 0
			case query.OpLt:
				ok = cmp < 0
			case query.OpLte:
				ok = cmp <= 0
			default:
				ok = cmp == 0
			}
			if ok {
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func (m memCompanies) filtered(f query.Filter) []model.Company {
	var out []model.Company
	for _, c := range m.s.data.companies {
		if m.match(c, f) {
			out = append(out, c)
		}
	}
	return out
}

func (m memCompanies) List(_ context.Context, q query.Query) ([]model.Company, error) {
	defer m.s.lock()()
	items := m.filtered(q.Filter)
	sort.SliceStable(items, func(i, j int) bool {
		for _, k := range q.Sort {
			cmp := compareValues(k.Field.Kind,
				companyField(items[i], k.Field.Name), companyField(items[j], k.Field.Name))
			if cmp == 0 {
				continue
			}
			if k.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return items[i].ID < items[j].ID
	})
	start := q.Offset()
	if start >= len(items) {
		return []model.Company{}, nil
	}
	end := start + q.Limit
	if end < start || end > len(items) {
		end = len(items)
	}
	return items[start:end], nil
}

func (m memCompanies) Count(_ context.Context, f query.Filter) (int64, error) {
	defer m.s.lock()()
	return int64(len(m.filtered(f))), nil
}

func (m memCompanies) GetByID(_ context.Context, id uint64) (*model.Company, error) {
	defer m.s.lock()()
	c, ok := m.s.data.companies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m memCompanies) nameTaken(name string, except uint64) bool {
	for _, c := range m.s.data.companies {
		if c.ID != except && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (m memCompanies) Create(_ context.Context, c *model.Company) error {
	defer m.s.lock()()
	if m.nameTaken(c.Name, 0) {
		return ErrConflict
	}
	c.ID = m.s.data.next("companies")
	c.CreatedAt = m.s.now()
	stored := *c
	stored.Bookings = nil
	m.s.data.companies[c.ID] = stored
	return nil
}

func (m memCompanies) Update(_ context.Context, c *model.Company) error {
	defer m.s.lock()()
	cur, ok := m.s.data.companies[c.ID]
	if !ok {
		return nil
	}
	if m.nameTaken(c.Name, c.ID) {
		return ErrConflict
	}
	stored := *c
	stored.CreatedAt = cur.CreatedAt
	stored.Bookings = nil
	m.s.data.companies[c.ID] = stored
	return nil
}

func (m memCompanies) Delete(_ context.Context, id uint64) error {
	defer m.s.lock()()
	if _, ok := m.s.data.companies[id]; !ok {
		return ErrNotFound
	}
	for _, b := range m.s.data.bookings {
		if b.CompanyID == id {
			return ErrForeignKey
		}
	}
	delete(m.s.data.companies, id)
	return nil
}

// ---- bookings ----

type memBookings struct{ s *MemoryStore }

func (m memBookings) sorted(keep func(model.Booking) bool) []model.Booking {
	var out []model.Booking
	for _, b := range m.s.data.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m memBookings) List(_ context.Context, f model.BookingFilter) ([]model.BookingView, error) {
	defer m.s.lock()()
	items := m.sorted(func(b model.Booking) bool {
		return (f.UserID == 0 || b.UserID == f.UserID) && (f.CompanyID == 0 || b.CompanyID == f.CompanyID)
	})
	out := make([]model.BookingView, 0, len(items))
	for _, b := range items {
		c := m.s.data.companies[b.CompanyID]
		out = append(out, model.BookingView{
			ID: b.ID, UserID: b.UserID, BookDate: b.BookDate, CreatedAt: b.CreatedAt,
			Company: &model.CompanySummary{ID: c.ID, Name: c.Name, Province: c.Province, Tel: c.Tel},
		})
	}
	return out, nil
}

func (m memBookings) ListByCompanies(_ context.Context, companyIDs []uint64) ([]model.Booking, error) {
	defer m.s.lock()()
	want := make(map[uint64]bool, len(companyIDs))
	for _, id := range companyIDs {
		want[id] = true
	}
	return m.sorted(func(b model.Booking) bool { return want[b.CompanyID] }), nil
}

func (m memBookings) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	defer m.s.lock()()
	b, ok := m.s.data.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m memBookings) GetView(_ context.Context, id uint64) (*model.BookingView, error) {
	defer m.s.lock()()
	b, ok := m.s.data.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := m.s.data.companies[b.CompanyID]
	return &model.BookingView{
		ID: b.ID, UserID: b.UserID, BookDate: b.BookDate, CreatedAt: b.CreatedAt,
		Company: &model.CompanySummary{ID: c.ID, Name: c.Name, Description: c.Description, Tel: c.Tel},
	}, nil
}

func (m memBookings) CountByUser(_ context.Context, userID uint64) (int64, error) {
	defer m.s.lock()()
	var n int64
	for _, b := range m.s.data.bookings {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m memBookings) Create(_ context.Context, b *model.Booking) error {
	defer m.s.lock()()
	if _, ok := m.s.data.companies[b.CompanyID]; !ok {
		return ErrForeignKey
	}
	b.ID = m.s.data.next("bookings")
	b.CreatedAt = m.s.now()
	m.s.data.bookings[b.ID] = *b
	return nil
}

func (m memBookings) Update(_ context.Context, b *model.Booking) error {
	defer m.s.lock()()
	cur, ok := m.s.data.bookings[b.ID]
	if !ok {
		return nil
	}
	if _, ok := m.s.data.companies[b.CompanyID]; !ok {
		return ErrForeignKey
	}
	cur.CompanyID = b.CompanyID
	cur.BookDate = b.BookDate
	m.s.data.bookings[b.ID] = cur
	return nil
}

func (m memBookings) Delete(_ context.Context, id uint64) error {
	defer m.s.lock()()
	if _, ok := m.s.data.bookings[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.data.bookings, id)
	return nil
}

func (m memBookings) DeleteByCompany(_ context.Context, companyID uint64) (int64, error) {
	defer m.s.lock()()
	var n int64
	for id, b := range m.s.data.bookings {
		if b.CompanyID == companyID {
			delete(m.s.data.bookings, id)
			n++
		}
	}
	return n, nil
}

// ---- users ----

type memUsers struct{ s *MemoryStore }

func (m memUsers) Create(_ context.Context, u *model.User) error {
	defer m.s.lock()()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.s.data.users {
		if existing.Email == u.Email {
			return ErrConflict
		}
	}
	u.ID = m.s.data.next("users")
	u.CreatedAt = m.s.now()
	m.s.data.users[u.ID] = *u
	return nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	defer m.s.lock()()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.s.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	defer m.s.lock()()
	u, ok := m.s.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// ---- refresh tokens ----

type memTokens struct{ s *MemoryStore }

func (m memTokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	defer m.s.lock()()
	m.s.data.tokens[tokenHash] = model.RefreshToken{
		ID: m.s.data.next("refresh_tokens"), UserID: userID, TokenHash: tokenHash,
		ExpiresAt: exp, CreatedAt: m.s.now(),
	}
	return nil
}

func (m memTokens) ConsumeRefresh(_ context.Context, tokenHash string) (uint64, error) {
	defer m.s.lock()()
	t, ok := m.s.data.tokens[tokenHash]
	now := m.s.now()
	if !ok || t.RevokedAt != nil || !now.Before(t.ExpiresAt) {
		return 0, ErrNotFound
	}
	t.RevokedAt = &now
	m.s.data.tokens[tokenHash] = t
	return t.UserID, nil
}

func (m memTokens) RevokeByHash(_ context.Context, tokenHash string) error {
	defer m.s.lock()()
	if t, ok := m.s.data.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := m.s.now()
		t.RevokedAt = &now
		m.s.data.tokens[tokenHash] = t
	}
	return nil
}

func (m memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	defer m.s.lock()()
	now := m.s.now()
	for h, t := range m.s.data.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			m.s.data.tokens[h] = t
		}
	}
	return nil
}

// ---- helpers ----

func companyField(c model.Company, name string) string {
	switch name {
	case "id":
		return strconv.FormatUint(c.ID, 10)
	case "name":
		return c.Name
	case "address":
		return c.Address
	case "district":
		return c.District
	case "province":
		return c.Province
	case "postalcode":
		return c.PostalCode
	case "website":
		return c.Website
	case "description":
		return c.Description
	case "tel":
		return c.Tel
	case "region":
		return c.Region
	case "createdAt":
		return c.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return ""
}

// compareValues orders a and b according to kind, returning -1, 0 or 1.
func compareValues(kind query.Kind, a, b string) int {
	switch kind {
	case query.KindNumber:
		x, _ := strconv.ParseFloat(a, 64)
		y, _ := strconv.ParseFloat(b, 64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case query.KindTime:
		x, _ := parseAnyTime(a)
		y, _ := parseAnyTime(b)
		return x.Compare(y)
	default:
		return strings.Compare(a, b)
	}
}

func parseAnyTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
