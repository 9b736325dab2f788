//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookstore/internal/domain/order"
	"bookstore/internal/infra"
	"bookstore/internal/infra/db"
	"bookstore/internal/pkg/claimcode"
	"bookstore/internal/pkg/clock"
	"bookstore/internal/usecase/commands"
	"bookstore/internal/usecase/queries"
	"bookstore/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/suite"
)

// ------------------------------------------------------------
// In-memory fakes
// ------------------------------------------------------------

type fakeDB struct{}

func (fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (fakeDB) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }

type memBook struct {
	title     string
	author    string
	price     int64
	stock     int
	soldCount int64
}

type memOrder struct {
	id             uuid.UUID
	ownerID        uuid.UUID
	status         order.Status
	claimCode      string
	subtotalCents  int64
	discountCents  int64
	totalCents     int64
	bulkApplied    bool
	loyaltyApplied bool
	loyaltyGrantID *uuid.UUID
	items          []shared.OrderItemSnapshot
}

type memGrant struct {
	id         uuid.UUID
	ownerID    uuid.UUID
	percent    float64
	usedBy     *uuid.UUID
	checkpoint *int64
	createdAt  time.Time
}

type memStore struct {
	books     map[uuid.UUID]*memBook
	carts     map[uuid.UUID]*shared.CartSnapshot
	orders    map[uuid.UUID]*memOrder
	grants    []*memGrant
	topics    []string
	notifyErr error
}

func newMemStore() *memStore {
	return &memStore{
		books:  make(map[uuid.UUID]*memBook),
		carts:  make(map[uuid.UUID]*shared.CartSnapshot),
		orders: make(map[uuid.UUID]*memOrder),
	}
}

func notFoundErr() error {
	return infra.WrapRepoErr("not found", pgx.ErrNoRows, infra.KindNotFound)
}

func conflictErr() error {
	return infra.WrapRepoErr("conflict", errors.New("zero rows affected"), infra.KindConflict)
}

// --- shared.CommandReads ---

func (s *memStore) BookByID(_ context.Context, id uuid.UUID) (*shared.BookSnapshot, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, notFoundErr()
	}
	return &shared.BookSnapshot{
		ID: id, Title: b.title, Author: b.author,
		PriceCents: b.price, AvailableQuantity: b.stock, SoldCount: b.soldCount,
	}, nil
}

func (s *memStore) CartByOwner(_ context.Context, ownerID uuid.UUID) (*shared.CartSnapshot, error) {
	c, ok := s.carts[ownerID]
	if !ok {
		return nil, notFoundErr()
	}
	return c, nil
}

func (s *memStore) OrderByID(_ context.Context, id uuid.UUID) (*shared.OrderSnapshot, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, notFoundErr()
	}
	return s.snapshot(o), nil
}

func (s *memStore) OrderByClaimCode(_ context.Context, code string) (*shared.OrderSnapshot, error) {
	for _, o := range s.orders {
		if o.claimCode == code && !o.status.IsTerminal() {
			return s.snapshot(o), nil
		}
	}
	return nil, notFoundErr()
}

func (s *memStore) ClaimCodeInUse(_ context.Context, code string) (bool, error) {
	for _, o := range s.orders {
		if o.claimCode == code && !o.status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CompletedOrderCount(_ context.Context, ownerID uuid.UUID) (int64, error) {
	var n int64
	for _, o := range s.orders {
		if o.ownerID == ownerID && o.status == order.StatusCompleted {
			n++
		}
	}
	return n, nil
}

func (s *memStore) HasCompletedOrderWithBook(_ context.Context, ownerID, bookID uuid.UUID) (bool, error) {
	for _, o := range s.orders {
		if o.ownerID != ownerID || o.status != order.StatusCompleted {
			continue
		}
		for _, it := range o.items {
			if it.BookID == bookID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *memStore) UserByEmail(context.Context, string) (*shared.UserSnapshot, error) {
	return nil, notFoundErr()
}

func (s *memStore) snapshot(o *memOrder) *shared.OrderSnapshot {
	return &shared.OrderSnapshot{
		ID: o.id, OwnerID: o.ownerID, Status: string(o.status), ClaimCode: o.claimCode,
		SubtotalCents: o.subtotalCents, DiscountCents: o.discountCents, TotalCents: o.totalCents,
		LoyaltyGrantID: o.loyaltyGrantID, Items: o.items,
	}
}

// --- repositories ---

type memBooks struct{ s *memStore }

func (r memBooks) Create(context.Context, db.DBTX, uuid.UUID, shared.CreateBookParams) error {
	return nil
}

func (r memBooks) Reserve(_ context.Context, _ db.DBTX, bookID uuid.UUID, quantity int) error {
	b, ok := r.s.books[bookID]
	if !ok || b.stock < quantity {
		return conflictErr()
	}
	b.stock -= quantity
	b.soldCount += int64(quantity)
	return nil
}

func (r memBooks) Release(_ context.Context, _ db.DBTX, bookID uuid.UUID, quantity int) error {
	b, ok := r.s.books[bookID]
	if !ok {
		return notFoundErr()
	}
	b.stock += quantity
	b.soldCount -= int64(quantity)
	return nil
}

type memOrders struct{ s *memStore }

func (r memOrders) Create(_ context.Context, _ db.DBTX, ord *order.Order) (uuid.UUID, error) {
	items := make([]shared.OrderItemSnapshot, 0, len(ord.Lines()))
	for _, l := range ord.Lines() {
		items = append(items, shared.OrderItemSnapshot{
			BookID: l.BookID(), Title: l.Title(), Author: l.Author(),
			UnitPriceCents: l.UnitPriceCents(), Quantity: l.Quantity(), LineTotalCents: l.SubtotalCents(),
		})
	}
	r.s.orders[ord.ID()] = &memOrder{
		id: ord.ID(), ownerID: ord.OwnerID(), status: ord.Status(), claimCode: ord.ClaimCode(),
		subtotalCents: ord.SubtotalCents(), discountCents: ord.DiscountCents(), totalCents: ord.TotalCents(),
		bulkApplied: ord.BulkApplied(), loyaltyApplied: ord.LoyaltyApplied(), loyaltyGrantID: ord.LoyaltyGrantID(),
		items: items,
	}
	return ord.ID(), nil
}

func (r memOrders) UpdateStatus(_ context.Context, _ db.DBTX, orderID uuid.UUID, from, to order.Status) error {
	o, ok := r.s.orders[orderID]
	if !ok || o.status != from {
		return conflictErr()
	}
	o.status = to
	return nil
}

type memCarts struct{ s *memStore }

func (r memCarts) EnsureCart(_ context.Context, _ db.DBTX, ownerID uuid.UUID) (uuid.UUID, error) {
	if c, ok := r.s.carts[ownerID]; ok {
		return c.ID, nil
	}
	c := &shared.CartSnapshot{ID: uuid.New(), OwnerID: ownerID}
	r.s.carts[ownerID] = c
	return c.ID, nil
}

func (r memCarts) UpsertLine(context.Context, db.DBTX, uuid.UUID, uuid.UUID, int) error { return nil }
func (r memCarts) RemoveLine(context.Context, db.DBTX, uuid.UUID, uuid.UUID) error     { return nil }

func (r memCarts) Clear(_ context.Context, _ db.DBTX, cartID uuid.UUID) error {
	for _, c := range r.s.carts {
		if c.ID == cartID {
			c.Lines = nil
		}
	}
	return nil
}

type memLoyalty struct{ s *memStore }

func (r memLoyalty) LockOldestUnused(_ context.Context, _ db.DBTX, ownerID uuid.UUID) (*shared.GrantSnapshot, error) {
	var oldest *memGrant
	for _, g := range r.s.grants {
		if g.ownerID != ownerID || g.usedBy != nil {
			continue
		}
		if oldest == nil || g.createdAt.Before(oldest.createdAt) {
			oldest = g
		}
	}
	if oldest == nil {
		return nil, nil
	}
	return &shared.GrantSnapshot{ID: oldest.id, OwnerID: oldest.ownerID, Percent: oldest.percent}, nil
}

func (r memLoyalty) MarkUsed(_ context.Context, _ db.DBTX, grantID, orderID uuid.UUID, _ time.Time) error {
	for _, g := range r.s.grants {
		if g.id == grantID {
			if g.usedBy != nil {
				return conflictErr()
			}
			g.usedBy = &orderID
			return nil
		}
	}
	return notFoundErr()
}

func (r memLoyalty) Restore(_ context.Context, _ db.DBTX, grantID, orderID uuid.UUID) error {
	for _, g := range r.s.grants {
		if g.id == grantID && g.usedBy != nil && *g.usedBy == orderID {
			g.usedBy = nil
			return nil
		}
	}
	return conflictErr()
}

func (r memLoyalty) IssueAtCheckpoint(_ context.Context, _ db.DBTX, ownerID uuid.UUID, checkpoint int64) (bool, error) {
	for _, g := range r.s.grants {
		if g.ownerID == ownerID && g.checkpoint != nil && *g.checkpoint == checkpoint {
			return false, nil
		}
	}
	cp := checkpoint
	r.s.grants = append(r.s.grants, &memGrant{
		id: uuid.New(), ownerID: ownerID, percent: 10.0, checkpoint: &cp, createdAt: time.Now(),
	})
	return true, nil
}

type memNotifications struct{ s *memStore }

func (r memNotifications) CreateJob(_ context.Context, _ db.DBTX, _, topic string, _ []byte, _ time.Time) error {
	if r.s.notifyErr != nil {
		return r.s.notifyErr
	}
	r.s.topics = append(r.s.topics, topic)
	return nil
}

// --- unit of work ---

type memTx struct{ s *memStore }

func (t memTx) Books() shared.BookRepository                 { return memBooks{t.s} }
func (t memTx) Orders() shared.OrderRepository               { return memOrders{t.s} }
func (t memTx) Carts() shared.CartRepository                 { return memCarts{t.s} }
func (t memTx) Loyalty() shared.LoyaltyRepository            { return memLoyalty{t.s} }
func (t memTx) Reviews() shared.ReviewRepository             { return nil }
func (t memTx) Users() shared.UserRepository                 { return nil }
func (t memTx) Notifications() shared.NotificationRepository { return memNotifications{t.s} }
func (t memTx) Reads() shared.CommandReads                   { return t.s }
func (t memTx) DB() db.DBTX                                  { return fakeDB{} }

type memUoW struct{ s *memStore }

func (u memUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return fn(ctx, memTx{u.s})
}

func (u memUoW) WithinReadOnly(ctx context.Context, fn func(ctx context.Context, db db.DBTX) error) error {
	return fn(ctx, fakeDB{})
}

func (u memUoW) WithDB(ctx context.Context, fn func(ctx context.Context, db db.DBTX) error) error {
	return fn(ctx, fakeDB{})
}

func (u memUoW) CommandReads() shared.CommandReads { return u.s }

// --- order read store / invalidator ---

type memOrderReads struct{ s *memStore }

func (r memOrderReads) FindByID(_ context.Context, id uuid.UUID) (*queries.OrderView, error) {
	o, ok := r.s.orders[id]
	if !ok {
		return nil, notFoundErr()
	}
	items := make([]queries.OrderItemView, 0, len(o.items))
	for _, it := range o.items {
		items = append(items, queries.OrderItemView{
			BookID: it.BookID, Title: it.Title, Author: it.Author,
			UnitPriceCents: it.UnitPriceCents, Quantity: int32(it.Quantity), SubtotalCents: it.LineTotalCents,
		})
	}
	return &queries.OrderView{
		ID: o.id, OwnerID: o.ownerID, Status: string(o.status), ClaimCode: o.claimCode,
		SubtotalCents: o.subtotalCents, DiscountCents: o.discountCents, TotalCents: o.totalCents,
		BulkApplied: o.bulkApplied, LoyaltyApplied: o.loyaltyApplied, LoyaltyGrantID: o.loyaltyGrantID,
		Items: items,
	}, nil
}

func (r memOrderReads) FindByClaimCode(context.Context, string) (*queries.OrderView, error) {
	return nil, notFoundErr()
}

func (r memOrderReads) FindByOwnerFirstPage(context.Context, uuid.UUID, int32) ([]*queries.OrderListItem, error) {
	return nil, nil
}

func (r memOrderReads) FindByOwnerKeyset(context.Context, uuid.UUID, time.Time, uuid.UUID, int32) ([]*queries.OrderListItem, error) {
	return nil, nil
}

type memInvalidator struct{ invalidated []uuid.UUID }

func (m *memInvalidator) Invalidate(_ context.Context, bookIDs ...uuid.UUID) {
	m.invalidated = append(m.invalidated, bookIDs...)
}

// ------------------------------------------------------------
// Suite
// ------------------------------------------------------------

type OrderCommandsTestSuite struct {
	suite.Suite
	store       *memStore
	invalidator *memInvalidator
	clock       *clock.MockClock
	cmds        commands.OrderCommands
	ownerID     uuid.UUID
}

func (s *OrderCommandsTestSuite) SetupTest() {
	s.store = newMemStore()
	s.invalidator = &memInvalidator{}
	s.clock = clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.cmds = commands.NewOrderCommands(memUoW{s.store}, memOrderReads{s.store}, s.invalidator, s.clock)
	s.ownerID = uuid.New()
}

func TestOrderCommandsSuite(t *testing.T) {
	suite.Run(t, new(OrderCommandsTestSuite))
}

func (s *OrderCommandsTestSuite) addBook(price int64, stock int) uuid.UUID {
	id := uuid.New()
	s.store.books[id] = &memBook{title: "Book " + id.String()[:8], author: "Author", price: price, stock: stock}
	return id
}

func (s *OrderCommandsTestSuite) fillCart(ownerID uuid.UUID, lines ...shared.CartLineSnapshot) {
	s.store.carts[ownerID] = &shared.CartSnapshot{ID: uuid.New(), OwnerID: ownerID, Lines: lines}
}

func (s *OrderCommandsTestSuite) cartLine(bookID uuid.UUID, quantity int) shared.CartLineSnapshot {
	b := s.store.books[bookID]
	return shared.CartLineSnapshot{
		BookID: bookID, Title: b.title, Author: b.author, Quantity: quantity, PriceCents: b.price,
	}
}

func (s *OrderCommandsTestSuite) seedGrant(ownerID uuid.UUID, percent float64) uuid.UUID {
	g := &memGrant{id: uuid.New(), ownerID: ownerID, percent: percent, createdAt: time.Now()}
	s.store.grants = append(s.store.grants, g)
	return g.id
}

func (s *OrderCommandsTestSuite) seedCompletedOrders(ownerID uuid.UUID, n int) {
	for range n {
		id := uuid.New()
		s.store.orders[id] = &memOrder{
			id: id, ownerID: ownerID, status: order.StatusCompleted, claimCode: "X23456X" + id.String()[:1],
		}
	}
}

// ------------------------------------------------------------
// PlaceOrder
// ------------------------------------------------------------

func (s *OrderCommandsTestSuite) TestPlaceOrderHappyPath() {
	bookID := s.addBook(2500, 10)
	s.fillCart(s.ownerID, s.cartLine(bookID, 2))

	view, err := s.cmds.PlaceOrder(context.Background(), s.ownerID, false)
	s.Require().NoError(err)

	s.Equal("pending", view.Status)
	s.Equal(int64(5000), view.SubtotalCents)
	s.Equal(int64(0), view.DiscountCents)
	s.Equal(int64(5000), view.TotalCents)
	s.True(claimcode.IsWellFormed(view.ClaimCode))

	s.Equal(8, s.store.books[bookID].stock, "stock reserved")
	s.Empty(s.store.carts[s.ownerID].Lines, "cart cleared")
	s.Contains(s.store.topics, "order_placed")
	s.Contains(s.invalidator.invalidated, bookID)
}

func (s *OrderCommandsTestSuite) TestPlaceOrderSurvivesNotifierOutage() {
	bookID := s.addBook(2500, 10)
	s.fillCart(s.ownerID, s.cartLine(bookID, 2))
	s.store.notifyErr = errors.New("notification store down")

	view, err := s.cmds.PlaceOrder(context.Background(), s.ownerID, false)
	s.Require().NoError(err, "a side-effect failure must not surface to the caller")

	s.Equal("pending", view.Status)
	s.Equal(8, s.store.books[bookID].stock, "checkout itself still commits")
	s.Empty(s.store.carts[s.ownerID].Lines)
	s.Empty(s.store.topics)
	s.Contains(s.invalidator.invalidated, bookID)
}

func (s *OrderCommandsTestSuite) TestPlaceOrderEmptyCart() {
	s.fillCart(s.ownerID)

	_, err := s.cmds.PlaceOrder(context.Background(), s.ownerID, false)
	s.ErrorIs(err, commands.ErrEmptyCart)

	_, err = s.cmds.PlaceOrder(context.Background(), uuid.New(), false)
	s.ErrorIs(err, commands.ErrEmptyCart, "missing cart reads as empty")
}

func (s *OrderCommandsTestSuite) TestPlaceOrderInsufficientStock() {
	bookID := s.addBook(1000, 3)
	s.fillCart(s.ownerID, s.cartLine(bookID, 2))

	_, err := s.cmds.PlaceOrder(context.Background(), s.ownerID, false)
	s.Require().NoError(err)
	s.Equal(1, s.store.books[bookID].stock)

	// Second buyer wants 2 but only 1 remains.
	other := uuid.New()
	s.fillCart(other, s.cartLine(bookID, 2))
	_, err = s.cmds.PlaceOrder(context.Background(), other, false)
	s.ErrorIs(err, commands.ErrInsufficientStock)
	s.Equal(1, s.store.books[bookID].stock, "failed checkout must not consume stock")
}

func (s *OrderCommandsTestSuite) TestPlaceOrderBulkDiscount() {
	bookID := s.addBook(2000, 10)
	s.fillCart(s.ownerID, s.cartLine(bookID, 5))

	view, err := s.cmds.PlaceOrder(context.Background(), s.ownerID, false)
	s.Require().NoError(err)

	s.True(view.BulkApplied)
	s.False(view.LoyaltyApplied)
	s.Equal(int64(10000), view.SubtotalCents)
	s.Equal(int64(500), view.DiscountCents, "5% of subtotal")
	s.Equal(int64(9500), view.TotalCents)
}

func (s *OrderCommandsTestSuite) TestPlaceOrderConsumesLoyaltyGrant() {
	bookID := s.addBook(10000, 10)
	grantID := s.seedGrant(s.ownerID, 10.0)
	s.fillCart(s.ownerID, s.cartLine(bookID, 1))

	view, err := s.cmds.PlaceOrder(context.Background(), s.ownerID, true)
	s.Require().NoError(err)

	s.True(view.LoyaltyApplied)
	s.Equal(int64(1000), view.DiscountCents, "10% of subtotal")
	s.Equal(int64(9000), view.TotalCents)
	s.Require().NotNil(view.LoyaltyGrantID)
	s.Equal(grantID, *view.LoyaltyGrantID)

	for _, g := range s.store.grants {
		if g.id == grantID {
			s.NotNil(g.usedBy, "grant consumed")
		}
	}
}

func (s *OrderCommandsTestSuite) TestPlaceOrderDiscountsAreAdditive() {
	bookID := s.addBook(2000, 10)
	s.seedGrant(s.ownerID, 10.0)
	s.fillCart(s.ownerID, s.cartLine(bookID, 5))

	view, err := s.cmds.PlaceOrder(context.Background(), s.ownerID, true)
	s.Require().NoError(err)

	s.True(view.BulkApplied)
	s.True(view.LoyaltyApplied)
	// 5% + 10% of 10000, summed, not compounded (which would give 1450).
	s.Equal(int64(1500), view.DiscountCents)
	s.Equal(int64(8500), view.TotalCents)
}

func (s *OrderCommandsTestSuite) TestPlaceOrderLoyaltyFlagWithoutGrantIsNoOp() {
	bookID := s.addBook(10000, 10)
	s.fillCart(s.ownerID, s.cartLine(bookID, 1))

	view, err := s.cmds.PlaceOrder(context.Background(), s.ownerID, true)
	s.Require().NoError(err)

	s.False(view.LoyaltyApplied)
	s.Equal(int64(0), view.DiscountCents)
	s.Nil(view.LoyaltyGrantID)
}

func (s *OrderCommandsTestSuite) TestPlaceOrderKeepsGrantWithoutFlag() {
	bookID := s.addBook(10000, 10)
	grantID := s.seedGrant(s.ownerID, 10.0)
	s.fillCart(s.ownerID, s.cartLine(bookID, 1))

	view, err := s.cmds.PlaceOrder(context.Background(), s.ownerID, false)
	s.Require().NoError(err)

	s.False(view.LoyaltyApplied)
	s.Equal(int64(10000), view.TotalCents)
	for _, g := range s.store.grants {
		if g.id == grantID {
			s.Nil(g.usedBy, "grant must stay unspent unless asked for")
		}
	}
}

func (s *OrderCommandsTestSuite) TestPlaceOrderDiscountWindowIsHalfOpen() {
	bookID := s.addBook(1000, 10)
	now := s.clock.Now()
	percent := 50.0
	startsAt := now.Add(-time.Hour)
	endsAt := now // closes exactly now: no longer active

	b := s.store.books[bookID]
	s.fillCart(s.ownerID, shared.CartLineSnapshot{
		BookID: bookID, Title: b.title, Author: b.author, Quantity: 1, PriceCents: b.price,
		DiscountPercent: &percent, DiscountStartsAt: &startsAt, DiscountEndsAt: &endsAt,
	})

	view, err := s.cmds.PlaceOrder(context.Background(), s.ownerID, false)
	s.Require().NoError(err)
	s.Equal(int64(1000), view.SubtotalCents, "expired window must not discount")

	// Reopen the window so it is active at the clock instant.
	endsAt2 := now.Add(time.Hour)
	other := uuid.New()
	s.fillCart(other, shared.CartLineSnapshot{
		BookID: bookID, Title: b.title, Author: b.author, Quantity: 1, PriceCents: b.price,
		DiscountPercent: &percent, DiscountStartsAt: &startsAt, DiscountEndsAt: &endsAt2,
	})
	view, err = s.cmds.PlaceOrder(context.Background(), other, false)
	s.Require().NoError(err)
	s.Equal(int64(500), view.SubtotalCents, "active window halves the unit price")
}

// ------------------------------------------------------------
// AdvanceStatus
// ------------------------------------------------------------

func (s *OrderCommandsTestSuite) placeOrder(ownerID uuid.UUID) uuid.UUID {
	bookID := s.addBook(1000, 100)
	s.fillCart(ownerID, s.cartLine(bookID, 1))
	view, err := s.cmds.PlaceOrder(context.Background(), ownerID, false)
	s.Require().NoError(err)
	return view.ID
}

func (s *OrderCommandsTestSuite) TestAdvanceStatusForward() {
	orderID := s.placeOrder(s.ownerID)

	view, err := s.cmds.AdvanceStatus(context.Background(), orderID, "confirmed")
	s.Require().NoError(err)
	s.Equal("confirmed", view.Status)

	// Skipping a step forward is allowed.
	view, err = s.cmds.AdvanceStatus(context.Background(), orderID, "completed")
	s.Require().NoError(err)
	s.Equal("completed", view.Status)
	s.Contains(s.store.topics, "order_completed")
}

func (s *OrderCommandsTestSuite) TestAdvanceStatusBackwardRejected() {
	orderID := s.placeOrder(s.ownerID)

	_, err := s.cmds.AdvanceStatus(context.Background(), orderID, "ready_for_pickup")
	s.Require().NoError(err)

	_, err = s.cmds.AdvanceStatus(context.Background(), orderID, "confirmed")
	s.ErrorIs(err, commands.ErrInvalidTransition)
}

func (s *OrderCommandsTestSuite) TestAdvanceStatusTerminalAbsorbs() {
	orderID := s.placeOrder(s.ownerID)

	_, err := s.cmds.AdvanceStatus(context.Background(), orderID, "completed")
	s.Require().NoError(err)

	_, err = s.cmds.AdvanceStatus(context.Background(), orderID, "ready_for_pickup")
	s.ErrorIs(err, commands.ErrOrderTerminal)
}

func (s *OrderCommandsTestSuite) TestAdvanceStatusValidation() {
	orderID := s.placeOrder(s.ownerID)

	_, err := s.cmds.AdvanceStatus(context.Background(), orderID, "shipped")
	s.ErrorIs(err, commands.ErrInvalidStatus)

	_, err = s.cmds.AdvanceStatus(context.Background(), uuid.New(), "confirmed")
	s.ErrorIs(err, commands.ErrOrderNotFound)
}

func (s *OrderCommandsTestSuite) TestCompletionIssuesGrantAtCheckpoint() {
	s.seedCompletedOrders(s.ownerID, 9)
	orderID := s.placeOrder(s.ownerID)

	_, err := s.cmds.AdvanceStatus(context.Background(), orderID, "completed")
	s.Require().NoError(err)

	s.Require().Len(s.store.grants, 1, "10th completion earns a grant")
	s.Equal(s.ownerID, s.store.grants[0].ownerID)
	s.Require().NotNil(s.store.grants[0].checkpoint)
	s.Equal(int64(10), *s.store.grants[0].checkpoint)
	s.Contains(s.store.topics, "loyalty_granted")
}

func (s *OrderCommandsTestSuite) TestCompletionOffCheckpointIssuesNothing() {
	s.seedCompletedOrders(s.ownerID, 5)
	orderID := s.placeOrder(s.ownerID)

	_, err := s.cmds.AdvanceStatus(context.Background(), orderID, "completed")
	s.Require().NoError(err)
	s.Empty(s.store.grants)
	s.NotContains(s.store.topics, "loyalty_granted")
}

func (s *OrderCommandsTestSuite) TestGrantIssuanceIsIdempotentPerCheckpoint() {
	s.seedCompletedOrders(s.ownerID, 9)
	// Checkpoint 10 already has a grant, e.g. from a replayed completion.
	cp := int64(10)
	s.store.grants = append(s.store.grants, &memGrant{
		id: uuid.New(), ownerID: s.ownerID, percent: 10.0, checkpoint: &cp, createdAt: time.Now(),
	})

	orderID := s.placeOrder(s.ownerID)
	_, err := s.cmds.AdvanceStatus(context.Background(), orderID, "completed")
	s.Require().NoError(err)

	s.Len(s.store.grants, 1, "checkpoint key dedupes issuance")
	s.NotContains(s.store.topics, "loyalty_granted", "no announcement for a deduped issuance")
}

// ------------------------------------------------------------
// VerifyPickup
// ------------------------------------------------------------

func (s *OrderCommandsTestSuite) TestVerifyPickupCompletesReadyOrder() {
	orderID := s.placeOrder(s.ownerID)
	_, err := s.cmds.AdvanceStatus(context.Background(), orderID, "ready_for_pickup")
	s.Require().NoError(err)

	code := s.store.orders[orderID].claimCode
	view, err := s.cmds.VerifyPickup(context.Background(), code)
	s.Require().NoError(err)
	s.Equal("completed", view.Status)
	s.Equal(orderID, view.ID)
}

func (s *OrderCommandsTestSuite) TestVerifyPickupCompletesPendingOrder() {
	// The claim code is the proof of entitlement, so the counter can hand
	// over an order that never went through the intermediate statuses.
	orderID := s.placeOrder(s.ownerID)

	code := s.store.orders[orderID].claimCode
	view, err := s.cmds.VerifyPickup(context.Background(), code)
	s.Require().NoError(err)
	s.Equal("completed", view.Status)
}

func (s *OrderCommandsTestSuite) TestVerifyPickupMalformedOrUnknownCode() {
	_, err := s.cmds.VerifyPickup(context.Background(), "bad code!")
	s.ErrorIs(err, commands.ErrOrderNotFound)

	_, err = s.cmds.VerifyPickup(context.Background(), "23456789")
	s.ErrorIs(err, commands.ErrOrderNotFound)
}

// ------------------------------------------------------------
// CancelOrder
// ------------------------------------------------------------

func (s *OrderCommandsTestSuite) TestCancelRestoresStockAndGrant() {
	bookID := s.addBook(10000, 5)
	grantID := s.seedGrant(s.ownerID, 10.0)
	s.fillCart(s.ownerID, s.cartLine(bookID, 2))

	view, err := s.cmds.PlaceOrder(context.Background(), s.ownerID, true)
	s.Require().NoError(err)
	s.Equal(3, s.store.books[bookID].stock)

	cancelled, err := s.cmds.CancelOrder(context.Background(), s.ownerID, queries.RoleCustomer, view.ID)
	s.Require().NoError(err)
	s.Equal("cancelled", cancelled.Status)

	s.Equal(5, s.store.books[bookID].stock, "stock returned")
	for _, g := range s.store.grants {
		if g.id == grantID {
			s.Nil(g.usedBy, "grant spendable again")
		}
	}
	s.Contains(s.store.topics, "order_cancelled")
}

func (s *OrderCommandsTestSuite) TestCancelHidesOthersOrders() {
	orderID := s.placeOrder(s.ownerID)

	_, err := s.cmds.CancelOrder(context.Background(), uuid.New(), queries.RoleCustomer, orderID)
	s.ErrorIs(err, commands.ErrOrderNotFound, "existence must not leak to other customers")

	// Staff may cancel on the customer's behalf.
	view, err := s.cmds.CancelOrder(context.Background(), uuid.New(), queries.RoleStaff, orderID)
	s.Require().NoError(err)
	s.Equal("cancelled", view.Status)
}

func (s *OrderCommandsTestSuite) TestCancelRejectsTerminalOrder() {
	orderID := s.placeOrder(s.ownerID)
	_, err := s.cmds.AdvanceStatus(context.Background(), orderID, "completed")
	s.Require().NoError(err)

	_, err = s.cmds.CancelOrder(context.Background(), s.ownerID, queries.RoleCustomer, orderID)
	s.ErrorIs(err, commands.ErrOrderTerminal)
}
