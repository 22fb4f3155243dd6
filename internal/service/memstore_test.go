package service

import (
	"context"
	"sort"
	"sync"

	"github.com/mmeshcher/library-system/internal/model"
	"github.com/mmeshcher/library-system/internal/repository"
)

// memStore хранит данные в памяти. WithinTx выполняется под общим мьютексом и
// восстанавливает снимок состояния при ошибке, что даёт сериализуемые транзакции.
type memStore struct {
	mu sync.Mutex

	members      map[int64]model.Member
	books        map[int64]model.Book
	transactions []model.Transaction
	entries      []model.BalanceEntry
	nextID       int64

	// failOn заставляет указанный шаг транзакции вернуть ошибку.
	failOn string
	// beforeStatusUpdate вызывается перед compare-and-set статуса книги.
	beforeStatusUpdate func(s *memStore)
}

func newMemStore() *memStore {
	return &memStore{
		members: make(map[int64]model.Member),
		books:   make(map[int64]model.Book),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addMember(m model.Member) model.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.id()
	s.members[m.ID] = m
	return m
}

func (s *memStore) addBook(b model.Book) model.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	if b.Status == "" {
		b.Status = model.BookStatusAvailable
	}
	s.books[b.ID] = b
	return b
}

func (s *memStore) bookStatus(id int64) model.BookStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.books[id].Status
}

func (s *memStore) counts() (transactions, entries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.transactions), len(s.entries)
}

func (s *memStore) Close() error                   { return nil }
func (s *memStore) Ping(ctx context.Context) error { return nil }

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	books := make(map[int64]model.Book, len(s.books))
	for k, v := range s.books {
		books[k] = v
	}
	txLen, entriesLen, nextID := len(s.transactions), len(s.entries), s.nextID

	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.books = books
		s.transactions = s.transactions[:txLen]
		s.entries = s.entries[:entriesLen]
		s.nextID = nextID
		return err
	}
	return nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) fail(step string) error {
	if t.s.failOn == step {
		return errStoreDown
	}
	return nil
}

func (t *memTx) GetMember(ctx context.Context, id int64) (*model.Member, error) {
	if err := t.fail("GetMember"); err != nil {
		return nil, err
	}
	m, ok := t.s.members[id]
	if !ok {
		return nil, repository.ErrMemberNotFound
	}
	return &m, nil
}

func (t *memTx) GetBook(ctx context.Context, id int64) (*model.Book, error) {
	if err := t.fail("GetBook"); err != nil {
		return nil, err
	}
	b, ok := t.s.books[id]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	return &b, nil
}

func (t *memTx) FindOpenBorrow(ctx context.Context, memberID, bookID int64) (*model.Transaction, error) {
	closed := make(map[int64]bool)
	for _, tr := range t.s.transactions {
		if tr.BorrowID != nil {
			closed[*tr.BorrowID] = true
		}
	}
	for i := len(t.s.transactions) - 1; i >= 0; i-- {
		tr := t.s.transactions[i]
		if tr.MemberID == memberID && tr.BookID == bookID && !tr.IsReturn() && !closed[tr.ID] {
			return &tr, nil
		}
	}
	return nil, repository.ErrOpenBorrowNotFound
}

func (t *memTx) LatestBalanceEntry(ctx context.Context, memberID int64) (*model.BalanceEntry, error) {
	return t.s.latest(memberID), nil
}

func (t *memTx) InsertTransaction(ctx context.Context, tr *model.Transaction) error {
	if err := t.fail("InsertTransaction"); err != nil {
		return err
	}
	tr.ID = t.s.id()
	t.s.transactions = append(t.s.transactions, *tr)
	return nil
}

func (t *memTx) UpdateBookStatus(ctx context.Context, bookID int64, from, to model.BookStatus) error {
	if t.s.beforeStatusUpdate != nil {
		t.s.beforeStatusUpdate(t.s)
	}
	b, ok := t.s.books[bookID]
	if !ok || b.Status != from {
		return repository.ErrStatusConflict
	}
	b.Status = to
	t.s.books[bookID] = b
	return nil
}

func (t *memTx) InsertBalanceEntry(ctx context.Context, e *model.BalanceEntry) error {
	if err := t.fail("InsertBalanceEntry"); err != nil {
		return err
	}
	e.ID = t.s.id()
	t.s.entries = append(t.s.entries, *e)
	return nil
}

func (s *memStore) latest(memberID int64) *model.BalanceEntry {
	var res *model.BalanceEntry
	for i := range s.entries {
		e := s.entries[i]
		if e.MemberID != memberID {
			continue
		}
		if res == nil || e.DateOfEntry.After(res.DateOfEntry) ||
			(e.DateOfEntry.Equal(res.DateOfEntry) && e.ID > res.ID) {
			res = &e
		}
	}
	return res
}

func (s *memStore) CreateMember(ctx context.Context, m *model.Member) error {
	*m = s.addMember(*m)
	return nil
}

func (s *memStore) GetMemberByID(ctx context.Context, id int64) (*model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return nil, repository.ErrMemberNotFound
	}
	return &m, nil
}

func (s *memStore) ListMembers(ctx context.Context) ([]model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Member
	for _, m := range s.members {
		res = append(res, m)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *memStore) UpdateMember(ctx context.Context, m *model.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[m.ID]; !ok {
		return repository.ErrMemberNotFound
	}
	s.members[m.ID] = *m
	return nil
}

func (s *memStore) DeleteMember(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return repository.ErrMemberNotFound
	}
	delete(s.members, id)
	return nil
}

func (s *memStore) CreateBook(ctx context.Context, b *model.Book) error {
	b.Status = model.BookStatusAvailable
	*b = s.addBook(*b)
	return nil
}

func (s *memStore) GetBookByID(ctx context.Context, id int64) (*model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	return &b, nil
}

func (s *memStore) ListBooks(ctx context.Context) ([]model.Book, error) {
	return s.SearchBooks(ctx, "")
}

func (s *memStore) SearchBooks(ctx context.Context, query string) ([]model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Book
	for _, b := range s.books {
		res = append(res, b)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *memStore) UpdateBook(ctx context.Context, b *model.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.books[b.ID]
	if !ok {
		return repository.ErrBookNotFound
	}
	b.Status = old.Status
	s.books[b.ID] = *b
	return nil
}

func (s *memStore) DeleteBook(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		return repository.ErrBookNotFound
	}
	delete(s.books, id)
	return nil
}

func (s *memStore) CurrentBalance(ctx context.Context, memberID int64) (*model.BalanceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest(memberID), nil
}

func (s *memStore) MemberTransactions(ctx context.Context, memberID int64) ([]model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.Transaction
	for _, tr := range s.transactions {
		if tr.MemberID == memberID {
			res = append(res, tr)
		}
	}
	return res, nil
}

func (s *memStore) LatestBalances(ctx context.Context, onlyOutstanding bool) ([]model.MemberBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []model.MemberBalance
	for id, m := range s.members {
		e := s.latest(id)
		if e == nil || (onlyOutstanding && e.Balance <= 0) {
			continue
		}
		res = append(res, model.MemberBalance{
			EntryID: e.ID, MemberID: id, Username: m.Username, Balance: e.Balance, DateOfEntry: e.DateOfEntry,
		})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].MemberID < res[j].MemberID })
	return res, nil
}

func (s *memStore) BookStatusCounts(ctx context.Context) ([]model.StatusCount, error) {
	return nil, nil
}

func (s *memStore) BalanceSeries(ctx context.Context) ([]model.BalancePoint, error) {
	return nil, nil
}
