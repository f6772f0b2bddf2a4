package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahmadqo/bengkel-pinjam/internal/model"
	"github.com/ahmadqo/bengkel-pinjam/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memTxKey struct{}

// memStore menyimpan data di memori dan meniru kontrak transaksi repository:
// transaksi saling eksklusif (setara kunci baris) dan di-rollback saat error.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	profiles map[uuid.UUID]model.Profile
	items    map[uuid.UUID]model.Item
	loans    map[uuid.UUID]model.Loan

	// failures memaksa operasi bernama tertentu gagal
	failures map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		profiles: map[uuid.UUID]model.Profile{},
		items:    map[uuid.UUID]model.Item{},
		loans:    map[uuid.UUID]model.Loan{},
		failures: map[string]error{},
	}
}

func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// fail dipanggil dengan s.mu terkunci.
func (s *memStore) fail(op string) error {
	return s.failures[op]
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	profiles map[uuid.UUID]model.Profile
	items    map[uuid.UUID]model.Item
	loans    map[uuid.UUID]model.Loan
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		profiles: make(map[uuid.UUID]model.Profile, len(s.profiles)),
		items:    make(map[uuid.UUID]model.Item, len(s.items)),
		loans:    make(map[uuid.UUID]model.Loan, len(s.loans)),
	}
	for k, v := range s.profiles {
		snap.profiles[k] = v
	}
	for k, v := range s.items {
		snap.items[k] = v
	}
	for k, v := range s.loans {
		snap.loans[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = snap.profiles
	s.items = snap.items
	s.loans = snap.loans
}

func inMemTx(ctx context.Context) bool {
	return ctx.Value(memTxKey{}) != nil
}

// helpers untuk menyiapkan data

func (s *memStore) addProfile(role model.Role, status model.AccountStatus) model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	p := model.Profile{
		ID:            id,
		Email:         id.String()[:8] + "@sekolah.sch.id",
		NamaLengkap:   "Pengguna " + id.String()[:4],
		Role:          role,
		Status:        status,
		TanggalDaftar: time.Now(),
		UpdatedAt:     time.Now(),
	}
	s.profiles[id] = p
	return p
}

func (s *memStore) addItem(nama string, jumlah int) model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := model.Item{
		ID:                 uuid.New(),
		Nama:               nama,
		Jumlah:             jumlah,
		Kondisi:            model.ConditionNew,
		StatusStok:         model.StockAvailable,
		TanggalDitambahkan: time.Now(),
		UpdatedAt:          time.Now(),
	}
	s.items[it.ID] = it
	return it
}

func (s *memStore) setStockLabel(id uuid.UUID, label model.StockStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.items[id]
	it.StatusStok = label
	s.items[id] = it
}

func (s *memStore) addLoan(userID, itemID uuid.UUID, jumlah int, status model.LoanStatus) model.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	l := model.Loan{
		ID:                    uuid.New(),
		UserID:                userID,
		AlatID:                itemID,
		Jumlah:                jumlah,
		Keperluan:             "praktik",
		TanggalPinjam:         now,
		TanggalKembaliRencana: now.AddDate(0, 0, 3),
		Status:                status,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	s.loans[l.ID] = l
	return l
}

func (s *memStore) itemStock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Jumlah
}

func (s *memStore) loan(id uuid.UUID) model.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loans[id]
}

func (s *memStore) profile(id uuid.UUID) model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[id]
}

func (s *memStore) deleteItem(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// ─── profile repository ───

type memProfileRepo struct{ s *memStore }

func (r memProfileRepo) FindAll(_ context.Context, filter model.AccountFilter) ([]*model.Profile, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*model.Profile
	for _, p := range r.s.profiles {
		p := p
		if p.Role == model.RoleAdmin {
			continue
		}
		if len(filter.Roles) > 0 && !containsRole(filter.Roles, p.Role) {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.NamaLengkap+p.Email), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TanggalDaftar.After(out[j].TanggalDaftar) })
	return paginateSlice(out, filter.Page, filter.PerPage), int64(len(out)), nil
}

func (r memProfileRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("profiles.FindByID"); err != nil {
		return nil, err
	}
	p, ok := r.s.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memProfileRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	if !inMemTx(ctx) {
		return nil, repository.ErrNoTx
	}
	return r.FindByID(ctx, id)
}

func (r memProfileRepo) FindByEmail(_ context.Context, email string) (*model.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.profiles {
		if p.Email == strings.ToLower(email) {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (r memProfileRepo) Create(_ context.Context, profile *model.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.profiles[profile.ID] = *profile
	return nil
}

func (r memProfileRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.AccountStatus, reason *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("profiles.UpdateStatus"); err != nil {
		return err
	}
	p, ok := r.s.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	p.AlasanPenolakan = reason
	r.s.profiles[id] = p
	return nil
}

func (r memProfileRepo) ConfirmEmail(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := r.s.profiles[id]
	if p.EmailConfirmedAt == nil {
		now := time.Now()
		p.EmailConfirmedAt = &now
		r.s.profiles[id] = p
	}
	return nil
}

func (r memProfileRepo) CountByStatus(_ context.Context, status model.AccountStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.profiles {
		if p.Status == status && p.Role != model.RoleAdmin {
			n++
		}
	}
	return n, nil
}

// ─── item repository ───

type memItemRepo struct{ s *memStore }

func (r memItemRepo) FindAll(_ context.Context, filter model.ItemFilter) ([]*model.Item, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Item
	for _, it := range r.s.items {
		it := it
		if filter.Search != "" && !strings.Contains(strings.ToLower(it.Nama), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, &it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nama < out[j].Nama })
	return paginateSlice(out, filter.Page, filter.PerPage), int64(len(out)), nil
}

func (r memItemRepo) FindAvailable(_ context.Context) ([]*model.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Item
	for _, it := range r.s.items {
		it := it
		if it.Jumlah > 0 && it.StatusStok.Borrowable() {
			out = append(out, &it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := derefOr(out[i].Kategori, "\uffff"), derefOr(out[j].Kategori, "\uffff")
		if ki != kj {
			return ki < kj
		}
		return out[i].Nama < out[j].Nama
	})
	return out, nil
}

func (r memItemRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r memItemRepo) Create(_ context.Context, item *model.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.items[item.ID] = *item
	return nil
}

func (r memItemRepo) Update(_ context.Context, item *model.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[item.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.items[item.ID] = *item
	return nil
}

func (r memItemRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.items, id)
	return nil
}

func (r memItemRepo) UpdateImage(_ context.Context, id uuid.UUID, path string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("items.UpdateImage"); err != nil {
		return err
	}
	it, ok := r.s.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	it.GambarURL = &path
	r.s.items[id] = it
	return nil
}

func (r memItemRepo) ChangeStock(_ context.Context, id uuid.UUID, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("items.ChangeStock"); err != nil {
		return 0, err
	}
	it, ok := r.s.items[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	it.Jumlah += delta
	if it.Jumlah < 0 {
		it.Jumlah = 0
	}
	r.s.items[id] = it
	return it.Jumlah, nil
}

func (r memItemRepo) CorrectStock(_ context.Context, id uuid.UUID, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if it.Jumlah+delta < 0 {
		return 0, repository.ErrInsufficientStock
	}
	it.Jumlah += delta
	r.s.items[id] = it
	return it.Jumlah, nil
}

func (r memItemRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.items)), nil
}

func (r memItemRepo) CountAvailable(ctx context.Context) (int64, error) {
	items, err := r.FindAvailable(ctx)
	return int64(len(items)), err
}

// ─── loan repository ───

type memLoanRepo struct{ s *memStore }

func (r memLoanRepo) withJoins(l model.Loan) *model.Loan {
	if p, ok := r.s.profiles[l.UserID]; ok {
		nama, role := p.NamaLengkap, string(p.Role)
		l.NamaPeminjam, l.RolePeminjam = &nama, &role
		l.KelasPeminjam, l.JurusanPeminjam = p.Kelas, p.Jurusan
	}
	if it, ok := r.s.items[l.AlatID]; ok {
		nama := it.Nama
		l.NamaAlat = &nama
	} else {
		l.NamaAlat = nil
	}
	return &l
}

func (r memLoanRepo) FindAll(_ context.Context, filter model.LoanFilter) ([]*model.Loan, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*model.Loan
	for _, l := range r.s.loans {
		if filter.Status != "" && string(l.Status) != filter.Status {
			continue
		}
		if filter.UserID != "" && l.UserID.String() != filter.UserID {
			continue
		}
		if filter.AlatID != "" && l.AlatID.String() != filter.AlatID {
			continue
		}
		out = append(out, r.withJoins(l))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginateSlice(out, filter.Page, filter.PerPage), int64(len(out)), nil
}

func (r memLoanRepo) FindByUser(ctx context.Context, userID uuid.UUID) ([]*model.Loan, error) {
	loans, _, err := r.FindAll(ctx, model.LoanFilter{UserID: userID.String(), PerPage: 1000})
	return loans, err
}

func (r memLoanRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.loans[id]
	if !ok {
		return nil, nil
	}
	return r.withJoins(l), nil
}

func (r memLoanRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Loan, error) {
	if !inMemTx(ctx) {
		return nil, repository.ErrNoTx
	}
	return r.FindByID(ctx, id)
}

func (r memLoanRepo) FindByQRToken(_ context.Context, token string) (*model.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.loans {
		if l.QRToken != nil && *l.QRToken == token {
			return r.withJoins(l), nil
		}
	}
	return nil, nil
}

func (r memLoanRepo) Create(_ context.Context, loan *model.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("loans.Create"); err != nil {
		return err
	}
	stored := *loan
	stored.NamaAlat, stored.NamaPeminjam = nil, nil
	r.s.loans[loan.ID] = stored
	return nil
}

func (r memLoanRepo) UpdateState(_ context.Context, loan *model.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("loans.UpdateState"); err != nil {
		return err
	}
	stored, ok := r.s.loans[loan.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = loan.Status
	stored.QRToken = loan.QRToken
	stored.Dikembalikan = loan.Dikembalikan
	stored.TanggalKembali = loan.TanggalKembali
	stored.DiputuskanOleh = loan.DiputuskanOleh
	stored.DiputuskanPada = loan.DiputuskanPada
	stored.UpdatedAt = loan.UpdatedAt
	r.s.loans[loan.ID] = stored
	return nil
}

func (r memLoanRepo) CountByStatus(_ context.Context, status model.LoanStatus) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, l := range r.s.loans {
		if l.Status == status {
			n++
		}
	}
	return n, nil
}

func (r memLoanRepo) CountActive(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, l := range r.s.loans {
		if l.IsOut() {
			n++
		}
	}
	return n, nil
}

func (r memLoanRepo) CountByUser(_ context.Context, userID uuid.UUID) (map[model.LoanStatus]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[model.LoanStatus]int64{}
	for _, l := range r.s.loans {
		if l.UserID == userID {
			counts[l.Status]++
		}
	}
	return counts, nil
}

func (r memLoanRepo) CountOpenByItem(_ context.Context, itemID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, l := range r.s.loans {
		if l.AlatID == itemID && (l.Status == model.LoanPending || l.IsOut()) {
			n++
		}
	}
	return n, nil
}

// ─── object store, notifier, confirmer ───

type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	removed []string
	putErr  error
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: map[string][]byte{}}
}

func (m *memObjectStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = data
	return nil
}

func (m *memObjectStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.removed = append(m.removed, key)
	return nil
}

func (m *memObjectStore) PublicURL(key string) string {
	return "http://storage.test/alat-images/" + key
}

func (m *memObjectStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type countingNotifier struct {
	mu      sync.Mutex
	sources []string
}

func (n *countingNotifier) NotifyStatsChanged(source string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sources = append(n.sources, source)
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sources)
}

type failingConfirmer struct {
	calls int
}

func (c *failingConfirmer) ConfirmEmail(context.Context, uuid.UUID) error {
	c.calls++
	return errors.New("auth provider unreachable")
}

func containsRole(roles []model.Role, role model.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func paginateSlice[T any](in []T, page, perPage int) []T {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	start := (page - 1) * perPage
	if start >= len(in) {
		return []T{}
	}
	end := start + perPage
	if end > len(in) {
		end = len(in)
	}
	return in[start:end]
}
