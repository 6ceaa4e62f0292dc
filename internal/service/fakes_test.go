package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/denysekm/bank-system/internal/model"
	"github.com/denysekm/bank-system/internal/repository"
)

// memStore backs the fake repositories with plain maps so service logic can
// be tested without a database. The fake unit of work snapshots the whole
// store before each transaction and restores it when the function returns an
// error, mimicking a rollback.
type memStore struct {
	nextID       uint
	clients      map[uint]*model.Client
	accounts     map[uint]*model.Account
	cards        map[uint]*model.Card
	transactions []*model.Transaction
	applications []*model.LoanApplication
	loans        map[uint]*model.Loan
	installments map[uint]*model.Installment

	// ids in FOR UPDATE acquisition order, for lock-ordering assertions
	lockOrder []uint
}

func newMemStore() *memStore {
	return &memStore{
		clients:      map[uint]*model.Client{},
		accounts:     map[uint]*model.Account{},
		cards:        map[uint]*model.Card{},
		loans:        map[uint]*model.Loan{},
		installments: map[uint]*model.Installment{},
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	c.nextID = s.nextID
	for k, v := range s.clients {
		cp := *v
		c.clients[k] = &cp
	}
	for k, v := range s.accounts {
		cp := *v
		c.accounts[k] = &cp
	}
	for k, v := range s.cards {
		cp := *v
		c.cards[k] = &cp
	}
	for _, v := range s.transactions {
		cp := *v
		c.transactions = append(c.transactions, &cp)
	}
	for _, v := range s.applications {
		cp := *v
		c.applications = append(c.applications, &cp)
	}
	for k, v := range s.loans {
		cp := *v
		c.loans[k] = &cp
	}
	for k, v := range s.installments {
		cp := *v
		c.installments[k] = &cp
	}
	c.lockOrder = append([]uint(nil), s.lockOrder...)
	return c
}

func (s *memStore) restore(from *memStore) {
	s.nextID = from.nextID
	s.clients = from.clients
	s.accounts = from.accounts
	s.cards = from.cards
	s.transactions = from.transactions
	s.applications = from.applications
	s.loans = from.loans
	s.installments = from.installments
	s.lockOrder = from.lockOrder
}

func (s *memStore) repos() repository.Repos {
	return repository.Repos{
		Clients:      &fakeClientRepo{s},
		Accounts:     &fakeAccountRepo{s},
		Cards:        &fakeCardRepo{s},
		Transactions: &fakeTransactionRepo{s},
		Loans:        &fakeLoanRepo{s},
	}
}

// fakeUnitOfWork runs the function against the live store and rolls the
// store back when the function fails. Transactions are serialized with a
// mutex so concurrent callers see the same isolation the row locks give the
// real unit of work.
type fakeUnitOfWork struct {
	mu    sync.Mutex
	store *memStore
}

func (u *fakeUnitOfWork) Do(ctx context.Context, fn func(r repository.Repos) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	snapshot := u.store.clone()
	if err := fn(u.store.repos()); err != nil {
		u.store.restore(snapshot)
		return err
	}
	return nil
}

// fakeCache records cache traffic so tests can assert what gets invalidated
// and when.
type fakeCache struct {
	data    map[string][]byte
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.data[key], nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	c.deletes = append(c.deletes, key)
	return nil
}

type fakeClientRepo struct{ s *memStore }

func (r *fakeClientRepo) Create(ctx context.Context, client *model.Client) error {
	client.ID = r.s.id()
	cp := *client
	r.s.clients[client.ID] = &cp
	return nil
}

func (r *fakeClientRepo) FindByID(ctx context.Context, id uint) (*model.Client, error) {
	client, ok := r.s.clients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *client
	return &cp, nil
}

func (r *fakeClientRepo) DeleteByIDs(ctx context.Context, ids []uint) error {
	for _, id := range ids {
		delete(r.s.clients, id)
	}
	return nil
}

type fakeAccountRepo struct{ s *memStore }

func (r *fakeAccountRepo) Create(ctx context.Context, account *model.Account) error {
	account.ID = r.s.id()
	cp := *account
	r.s.accounts[account.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) Update(ctx context.Context, account *model.Account) error {
	if _, ok := r.s.accounts[account.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *account
	r.s.accounts[account.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) FindByID(ctx context.Context, id uint) (*model.Account, error) {
	account, ok := r.s.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *account
	return &cp, nil
}

func (r *fakeAccountRepo) FindByLogin(ctx context.Context, login string) (*model.Account, error) {
	for _, account := range r.s.accounts {
		if account.Login == login {
			cp := *account
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAccountRepo) FindByNumber(ctx context.Context, number string) (*model.Account, error) {
	for _, account := range r.s.accounts {
		if account.AccountNumber == number {
			cp := *account
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeAccountRepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.Account, error) {
	r.s.lockOrder = append(r.s.lockOrder, id)
	return r.FindByID(ctx, id)
}

func (r *fakeAccountRepo) FindByNumberForUpdate(ctx context.Context, number string) (*model.Account, error) {
	account, err := r.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	r.s.lockOrder = append(r.s.lockOrder, account.ID)
	return account, nil
}

func (r *fakeAccountRepo) AdjustBalance(ctx context.Context, id uint, delta decimal.Decimal) error {
	account, ok := r.s.accounts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	account.Balance = account.Balance.Add(delta)
	return nil
}

func (r *fakeAccountRepo) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	_, err := r.FindByNumber(ctx, number)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeAccountRepo) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	_, err := r.FindByLogin(ctx, login)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeAccountRepo) ListChildren(ctx context.Context, parentID uint) ([]model.Account, error) {
	var children []model.Account
	for _, account := range r.s.accounts {
		if account.ParentAccountID != nil && *account.ParentAccountID == parentID {
			cp := *account
			if client, ok := r.s.clients[account.ClientID]; ok {
				cp.Client = *client
			}
			children = append(children, cp)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children, nil
}

func (r *fakeAccountRepo) ListIDsByClient(ctx context.Context, clientID uint) ([]uint, error) {
	var ids []uint
	for _, account := range r.s.accounts {
		if account.ClientID == clientID {
			ids = append(ids, account.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakeAccountRepo) ListChildIDs(ctx context.Context, parentID uint) ([]uint, error) {
	var ids []uint
	for _, account := range r.s.accounts {
		if account.ParentAccountID != nil && *account.ParentAccountID == parentID {
			ids = append(ids, account.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *fakeAccountRepo) ListClientIDs(ctx context.Context, accountIDs []uint) ([]uint, error) {
	seen := map[uint]bool{}
	var ids []uint
	for _, accountID := range accountIDs {
		account, ok := r.s.accounts[accountID]
		if !ok || seen[account.ClientID] {
			continue
		}
		seen[account.ClientID] = true
		ids = append(ids, account.ClientID)
	}
	return ids, nil
}

func (r *fakeAccountRepo) ListNonAdminWithClients(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	for _, account := range r.s.accounts {
		if account.Role == model.RoleAdmin {
			continue
		}
		cp := *account
		if client, ok := r.s.clients[account.ClientID]; ok {
			cp.Client = *client
		}
		accounts = append(accounts, cp)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (r *fakeAccountRepo) DeleteByIDs(ctx context.Context, ids []uint) error {
	for _, id := range ids {
		delete(r.s.accounts, id)
	}
	return nil
}

type fakeCardRepo struct{ s *memStore }

func (r *fakeCardRepo) Create(ctx context.Context, card *model.Card) error {
	card.ID = r.s.id()
	cp := *card
	r.s.cards[card.ID] = &cp
	return nil
}

func (r *fakeCardRepo) ListByAccount(ctx context.Context, accountID uint) ([]model.Card, error) {
	var cards []model.Card
	for _, card := range r.s.cards {
		if card.AccountID == accountID {
			cards = append(cards, *card)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards, nil
}

func (r *fakeCardRepo) FindByNumber(ctx context.Context, number string) (*model.Card, error) {
	for _, card := range r.s.cards {
		if card.CardNumber == number {
			cp := *card
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCardRepo) FindByIDForUpdate(ctx context.Context, id uint) (*model.Card, error) {
	card, ok := r.s.cards[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	r.s.lockOrder = append(r.s.lockOrder, id)
	cp := *card
	return &cp, nil
}

func (r *fakeCardRepo) FindByNumberForUpdate(ctx context.Context, number string) (*model.Card, error) {
	card, err := r.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	r.s.lockOrder = append(r.s.lockOrder, card.ID)
	return card, nil
}

func (r *fakeCardRepo) FindByAccountAndTypeForUpdate(ctx context.Context, accountID uint, cardType model.CardType) (*model.Card, error) {
	for _, card := range r.s.cards {
		if card.AccountID == accountID && card.Type == cardType {
			r.s.lockOrder = append(r.s.lockOrder, card.ID)
			cp := *card
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCardRepo) CountByAccountAndType(ctx context.Context, accountID uint, cardType model.CardType) (int64, error) {
	var count int64
	for _, card := range r.s.cards {
		if card.AccountID == accountID && card.Type == cardType {
			count++
		}
	}
	return count, nil
}

func (r *fakeCardRepo) AdjustBalance(ctx context.Context, id uint, delta decimal.Decimal) error {
	card, ok := r.s.cards[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	card.Balance = card.Balance.Add(delta)
	return nil
}

func (r *fakeCardRepo) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	_, err := r.FindByNumber(ctx, number)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *fakeCardRepo) DeleteByAccountIDs(ctx context.Context, accountIDs []uint) error {
	for id, card := range r.s.cards {
		for _, accountID := range accountIDs {
			if card.AccountID == accountID {
				delete(r.s.cards, id)
				break
			}
		}
	}
	return nil
}

type fakeTransactionRepo struct{ s *memStore }

func (r *fakeTransactionRepo) Append(ctx context.Context, entry *model.Transaction) error {
	entry.ID = r.s.id()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	cp := *entry
	r.s.transactions = append(r.s.transactions, &cp)
	return nil
}

func (r *fakeTransactionRepo) ListRecentByAccount(ctx context.Context, accountID uint, limit int) ([]model.Transaction, error) {
	var entries []model.Transaction
	for i := len(r.s.transactions) - 1; i >= 0 && len(entries) < limit; i-- {
		if r.s.transactions[i].AccountID == accountID {
			entries = append(entries, *r.s.transactions[i])
		}
	}
	return entries, nil
}

func (r *fakeTransactionRepo) DeleteByAccountIDs(ctx context.Context, accountIDs []uint) error {
	keep := r.s.transactions[:0]
	for _, entry := range r.s.transactions {
		remove := false
		for _, accountID := range accountIDs {
			if entry.AccountID == accountID {
				remove = true
				break
			}
		}
		if !remove {
			keep = append(keep, entry)
		}
	}
	r.s.transactions = keep
	return nil
}

type fakeLoanRepo struct{ s *memStore }

func (r *fakeLoanRepo) CreateApplication(ctx context.Context, app *model.LoanApplication) error {
	app.ID = r.s.id()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now()
	}
	cp := *app
	r.s.applications = append(r.s.applications, &cp)
	return nil
}

func (r *fakeLoanRepo) ListApplicationsByAccount(ctx context.Context, accountID uint) ([]model.LoanApplication, error) {
	var apps []model.LoanApplication
	for i := len(r.s.applications) - 1; i >= 0; i-- {
		if r.s.applications[i].AccountID == accountID {
			apps = append(apps, *r.s.applications[i])
		}
	}
	return apps, nil
}

func (r *fakeLoanRepo) CreateLoan(ctx context.Context, loan *model.Loan) error {
	loan.ID = r.s.id()
	cp := *loan
	r.s.loans[loan.ID] = &cp
	return nil
}

func (r *fakeLoanRepo) FindActiveByAccount(ctx context.Context, accountID uint) (*model.Loan, error) {
	for _, loan := range r.s.loans {
		if loan.AccountID == accountID && loan.Status == model.LoanStatusActive {
			cp := *loan
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeLoanRepo) FindActiveByAccountForUpdate(ctx context.Context, accountID uint) (*model.Loan, error) {
	loan, err := r.FindActiveByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	r.s.lockOrder = append(r.s.lockOrder, loan.ID)
	return loan, nil
}

func (r *fakeLoanRepo) UpdateSettlement(ctx context.Context, loanID uint, remaining decimal.Decimal, status model.LoanStatus) error {
	loan, ok := r.s.loans[loanID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	loan.Remaining = remaining
	loan.Status = status
	return nil
}

func (r *fakeLoanRepo) CreateInstallments(ctx context.Context, installments []model.Installment) error {
	for i := range installments {
		installments[i].ID = r.s.id()
		cp := installments[i]
		r.s.installments[cp.ID] = &cp
	}
	return nil
}

func (r *fakeLoanRepo) ListInstallmentsByLoan(ctx context.Context, loanID uint) ([]model.Installment, error) {
	var list []model.Installment
	for _, inst := range r.s.installments {
		if inst.LoanID == loanID {
			list = append(list, *inst)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Sequence < list[j].Sequence })
	return list, nil
}

func (r *fakeLoanRepo) NextPendingForUpdate(ctx context.Context, loanID uint) (*model.Installment, error) {
	var next *model.Installment
	for _, inst := range r.s.installments {
		if inst.LoanID != loanID || inst.Status != model.InstallmentStatusPending {
			continue
		}
		if next == nil || inst.Sequence < next.Sequence {
			next = inst
		}
	}
	if next == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *next
	return &cp, nil
}

func (r *fakeLoanRepo) MarkInstallmentPaid(ctx context.Context, installmentID uint, paidAt time.Time) error {
	inst, ok := r.s.installments[installmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inst.Status = model.InstallmentStatusPaid
	inst.PaidAt = &paidAt
	return nil
}

func (r *fakeLoanRepo) MarkAllPendingPaid(ctx context.Context, loanID uint, paidAt time.Time) error {
	for _, inst := range r.s.installments {
		if inst.LoanID == loanID && inst.Status == model.InstallmentStatusPending {
			inst.Status = model.InstallmentStatusPaid
			at := paidAt
			inst.PaidAt = &at
		}
	}
	return nil
}

func (r *fakeLoanRepo) DeleteByAccountIDs(ctx context.Context, accountIDs []uint) error {
	inAccounts := func(id uint) bool {
		for _, accountID := range accountIDs {
			if id == accountID {
				return true
			}
		}
		return false
	}
	for id, loan := range r.s.loans {
		if !inAccounts(loan.AccountID) {
			continue
		}
		for instID, inst := range r.s.installments {
			if inst.LoanID == id {
				delete(r.s.installments, instID)
			}
		}
		delete(r.s.loans, id)
	}
	keep := r.s.applications[:0]
	for _, app := range r.s.applications {
		if !inAccounts(app.AccountID) {
			keep = append(keep, app)
		}
	}
	r.s.applications = keep
	return nil
}

// Fixture helpers used across the service tests.

func seedAccount(s *memStore, clientID uint, number string, balance decimal.Decimal) *model.Account {
	account := &model.Account{
		ClientID:      clientID,
		AccountNumber: number,
		Login:         "user-" + number,
		Role:          model.RoleUser,
		Balance:       balance,
	}
	_ = (&fakeAccountRepo{s}).Create(context.Background(), account)
	return account
}

func seedClient(s *memStore, isMinor bool) *model.Client {
	client := &model.Client{
		FullName:   "Test Client",
		BirthDate:  time.Date(1990, time.March, 14, 0, 0, 0, 0, time.UTC),
		ClientType: model.ClientTypeIndividual,
		IsMinor:    isMinor,
	}
	_ = (&fakeClientRepo{s}).Create(context.Background(), client)
	client.PassportNumber = "AB" + time.Now().Format("150405")
	return client
}

func seedCard(s *memStore, accountID uint, number string, cardType model.CardType, balance decimal.Decimal) *model.Card {
	card := &model.Card{
		AccountID:  accountID,
		CardNumber: number,
		CVV:        "123",
		ExpiryDate: time.Now().AddDate(5, 0, 0),
		Type:       cardType,
		Brand:      model.CardBrandVisa,
		Balance:    balance,
	}
	_ = (&fakeCardRepo{s}).Create(context.Background(), card)
	return card
}
