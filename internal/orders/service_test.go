package orders

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaflow/pharmaflow/internal/customers"
	"github.com/pharmaflow/pharmaflow/internal/sequence"
	"github.com/pharmaflow/pharmaflow/internal/shared"
)

type memStock struct {
	onHand   decimal.Decimal
	reserved decimal.Decimal
}

type memTerms struct {
	terms string
	days  int
}

// memRepo is an in-memory Repository for service tests. WithTx is a
// pass-through; the service's transactional structure is still exercised
// because every mutation goes through the same method set.
type memRepo struct {
	nextID   int64
	orders   map[int64]*Order
	seq      map[string]int64
	accounts map[int64]*customers.CreditAccount
	terms    map[int64]memTerms
	stock    map[int64]*memStock
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:   map[int64]*Order{},
		seq:      map[string]int64{},
		accounts: map[int64]*customers.CreditAccount{},
		terms:    map[int64]memTerms{},
		stock:    map[int64]*memStock{},
	}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) NextNumber(_ context.Context, kind sequence.Kind, at time.Time) (string, error) {
	key := string(kind) + ":" + kind.PeriodKey(at)
	m.seq[key]++
	return kind.Format(at, m.seq[key]), nil
}

func (m *memRepo) Create(_ context.Context, o *Order) error {
	m.nextID++
	o.ID = m.nextID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *memRepo) Get(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memRepo) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	return m.Get(ctx, id)
}

func (m *memRepo) List(_ context.Context, req ListOrdersRequest) ([]Order, int, error) {
	var out []Order
	for _, o := range m.orders {
		if req.Status != "" && string(o.Status) != req.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (m *memRepo) ListOverdue(_ context.Context, asOf time.Time) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.PaymentStatus != PaymentPaid && o.DueDate != nil && o.DueDate.Before(asOf) && o.Status != StatusCancelled {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, id int64, fields map[string]any) error {
	o, ok := m.orders[id]
	if !ok {
		return shared.ErrNotFound
	}
	for col, v := range fields {
		switch col {
		case "status":
			o.Status = v.(OrderStatus)
		case "payment_status":
			o.PaymentStatus = v.(PaymentStatus)
		case "delivery_type":
			o.DeliveryType = v.(DeliveryType)
		case "subtotal":
			o.Subtotal = v.(decimal.Decimal)
		case "tax_amount":
			o.TaxAmount = v.(decimal.Decimal)
		case "discount_amount":
			o.DiscountAmount = v.(decimal.Decimal)
		case "shipping_cost":
			o.ShippingCost = v.(decimal.Decimal)
		case "total_amount":
			o.TotalAmount = v.(decimal.Decimal)
		case "balance_due":
			o.BalanceDue = v.(decimal.Decimal)
		case "notes":
			o.Notes = v.(string)
		case "expected_delivery_date":
			switch t := v.(type) {
			case *time.Time:
				o.ExpectedDeliveryDate = t
			case time.Time:
				o.ExpectedDeliveryDate = &t
			}
		case "actual_delivery_date":
			t := v.(time.Time)
			o.ActualDeliveryDate = &t
		case "is_invoiced":
			o.IsInvoiced = v.(bool)
		case "invoice_number":
			s := v.(string)
			o.InvoiceNumber = &s
		case "is_delivered":
			o.IsDelivered = v.(bool)
		case "inventory_reserved":
			o.InventoryReserved = v.(bool)
		case "inventory_deducted":
			o.InventoryDeducted = v.(bool)
		}
	}
	o.UpdatedAt = time.Now()
	return nil
}

func (m *memRepo) ReplaceItems(_ context.Context, orderID int64, items []OrderItem) error {
	o, ok := m.orders[orderID]
	if !ok {
		return shared.ErrNotFound
	}
	o.Items = append([]OrderItem(nil), items...)
	return nil
}

func (m *memRepo) MarkItemsDelivered(_ context.Context, orderID int64) error {
	o, ok := m.orders[orderID]
	if !ok {
		return shared.ErrNotFound
	}
	for i := range o.Items {
		o.Items[i].QuantityDelivered = o.Items[i].Quantity
	}
	return nil
}

func (m *memRepo) GetCreditAccountForUpdate(_ context.Context, customerID int64) (*customers.CreditAccount, error) {
	acct, ok := m.accounts[customerID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (m *memRepo) GetCustomerTerms(_ context.Context, customerID int64) (string, int, error) {
	tm, ok := m.terms[customerID]
	if !ok {
		return "", 0, shared.ErrNotFound
	}
	return tm.terms, tm.days, nil
}

func (m *memRepo) AdjustCustomerBalance(_ context.Context, customerID int64, delta decimal.Decimal) error {
	acct, ok := m.accounts[customerID]
	if !ok {
		return shared.ErrNotFound
	}
	acct.CurrentBalance = acct.CurrentBalance.Add(delta)
	return nil
}

func (m *memRepo) ReserveStock(_ context.Context, o *Order, _ int64) error {
	for _, it := range o.Items {
		lvl, ok := m.stock[it.ProductID]
		if !ok || lvl.onHand.Sub(lvl.reserved).LessThan(it.Quantity) {
			return shared.ErrInsufficientStock
		}
		lvl.reserved = lvl.reserved.Add(it.Quantity)
	}
	return nil
}

func (m *memRepo) ReleaseStock(_ context.Context, o *Order, _ int64) error {
	for _, it := range o.Items {
		if lvl, ok := m.stock[it.ProductID]; ok {
			lvl.reserved = lvl.reserved.Sub(it.Quantity)
			if lvl.reserved.IsNegative() {
				lvl.reserved = decimal.Zero
			}
		}
	}
	return nil
}

func (m *memRepo) DeductStock(_ context.Context, o *Order, _ int64) error {
	for _, it := range o.Items {
		lvl, ok := m.stock[it.ProductID]
		if !ok || lvl.onHand.LessThan(it.Quantity) {
			return shared.ErrInsufficientStock
		}
		lvl.onHand = lvl.onHand.Sub(it.Quantity)
		lvl.reserved = lvl.reserved.Sub(it.Quantity)
		if lvl.reserved.IsNegative() {
			lvl.reserved = decimal.Zero
		}
	}
	return nil
}

func testService(repo *memRepo) *Service {
	return NewService(repo, slog.New(slog.DiscardHandler))
}

func seedCustomer(repo *memRepo, id int64, terms string, days int, limitType string, limit string) {
	repo.terms[id] = memTerms{terms: terms, days: days}
	repo.accounts[id] = &customers.CreditAccount{
		ID:              id,
		CreditLimitType: customers.CreditLimitType(limitType),
		CreditLimit:     d(limit),
		CurrentBalance:  decimal.Zero,
	}
}

func createReq(customerID int64, terms string, qty, price string) CreateOrderRequest {
	return CreateOrderRequest{
		CustomerID:   customerID,
		DeliveryType: "delivery",
		PaymentTerms: terms,
		Items: []OrderItemInput{
			{ProductID: 1, ProductName: "Amoxicillin 500mg", Quantity: d(qty), UnitPrice: d(price)},
		},
	}
}

func TestCreateAssignsNumberAndTotals(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	svc := testService(repo)

	o, err := svc.Create(context.Background(), createReq(7, "pay_now", "10", "120"), 42)
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Regexp(t, `^ORD-\d{4}-0001$`, o.OrderNumber)
	assert.True(t, o.TotalAmount.Equal(d("1200")))
	assert.True(t, o.BalanceDue.Equal(d("1200")))
	assert.Nil(t, o.DueDate)
	assert.EqualValues(t, 42, o.CreatedBy)
}

func TestCreateSetsDueDateForCreditTerms(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_later", 30, "limited", "100000")
	svc := testService(repo)

	o, err := svc.Create(context.Background(), createReq(7, "pay_later", "1", "500"), 1)
	require.NoError(t, err)
	require.NotNil(t, o.DueDate)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), *o.DueDate, time.Minute)
}

func TestCreateRejectsCreditTermsForCashCustomer(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	svc := testService(repo)

	_, err := svc.Create(context.Background(), createReq(7, "pay_later", "1", "500"), 1)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestConfirmReservesStockAndCredit(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_later", 30, "limited", "50000")
	repo.stock[1] = &memStock{onHand: d("100")}
	svc := testService(repo)

	o, err := svc.Create(context.Background(), createReq(7, "pay_later", "10", "120"), 1)
	require.NoError(t, err)

	o, err = svc.Confirm(context.Background(), o.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.True(t, o.InventoryReserved)
	assert.True(t, repo.stock[1].reserved.Equal(d("10")))
	assert.True(t, repo.accounts[7].CurrentBalance.Equal(d("1200")))
}

func TestConfirmRejectsOverCreditLimit(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_later", 30, "limited", "50000")
	repo.accounts[7].CurrentBalance = d("40000")
	repo.stock[1] = &memStock{onHand: d("1000")}
	svc := testService(repo)

	o, err := svc.Create(context.Background(), createReq(7, "pay_later", "100", "200"), 1)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), o.ID, 1)
	var cle *shared.CreditLimitExceededError
	require.ErrorAs(t, err, &cle)

	// nothing moved
	got, _ := svc.Get(context.Background(), o.ID)
	assert.Equal(t, StatusDraft, got.Status)
	assert.True(t, repo.stock[1].reserved.IsZero())
	assert.True(t, repo.accounts[7].CurrentBalance.Equal(d("40000")))
}

func TestConfirmRejectsInsufficientStock(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	repo.stock[1] = &memStock{onHand: d("5")}
	svc := testService(repo)

	o, err := svc.Create(context.Background(), createReq(7, "pay_now", "10", "120"), 1)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), o.ID, 1)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestConfirmRejectsEmptyOrder(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	svc := testService(repo)

	req := createReq(7, "pay_now", "1", "1")
	req.Items = nil
	o, err := svc.Create(context.Background(), req, 1)
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), o.ID, 1)
	var ite *shared.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestAdvanceReadyRequiresPaidOrCredit(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	repo.stock[1] = &memStock{onHand: d("100")}
	svc := testService(repo)
	ctx := context.Background()

	o, err := svc.Create(ctx, createReq(7, "pay_now", "10", "120"), 1)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, o.ID, 1)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, o.ID, StatusProcessing, 1)
	require.NoError(t, err)

	// unpaid pay_now order cannot enter fulfillment
	_, err = svc.Advance(ctx, o.ID, StatusReadyForDelivery, 1)
	var ite *shared.InvalidTransitionError
	require.ErrorAs(t, err, &ite)

	repo.orders[o.ID].PaymentStatus = PaymentPaid
	got, err := svc.Advance(ctx, o.ID, StatusReadyForDelivery, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusReadyForDelivery, got.Status)
}

func TestAdvancePickupDeductsStock(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_later", 30, "unlimited", "0")
	repo.stock[1] = &memStock{onHand: d("100")}
	svc := testService(repo)
	ctx := context.Background()

	req := createReq(7, "pay_later", "10", "120")
	req.DeliveryType = "pickup"
	o, err := svc.Create(ctx, req, 1)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, o.ID, 1)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, o.ID, StatusProcessing, 1)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, o.ID, StatusReadyForDelivery, 1)
	require.NoError(t, err)

	got, err := svc.Advance(ctx, o.ID, StatusPickedByCustomer, 1)
	require.NoError(t, err)
	assert.True(t, got.IsDelivered)
	assert.True(t, got.InventoryDeducted)
	assert.True(t, repo.stock[1].onHand.Equal(d("90")))
	assert.True(t, repo.stock[1].reserved.IsZero())

	got, err = svc.Advance(ctx, o.ID, StatusCompleted, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestAdvancePickupStampsDeliveryDateAndItems(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_later", 30, "unlimited", "0")
	repo.stock[1] = &memStock{onHand: d("100")}
	svc := testService(repo)
	ctx := context.Background()

	req := createReq(7, "pay_later", "10", "120")
	req.DeliveryType = "pickup"
	o, err := svc.Create(ctx, req, 1)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, o.ID, 1)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, o.ID, StatusProcessing, 1)
	require.NoError(t, err)
	_, err = svc.Advance(ctx, o.ID, StatusReadyForDelivery, 1)
	require.NoError(t, err)

	got, err := svc.Advance(ctx, o.ID, StatusPickedByCustomer, 1)
	require.NoError(t, err)
	require.NotNil(t, got.ActualDeliveryDate)
	assert.WithinDuration(t, time.Now(), *got.ActualDeliveryDate, time.Minute)

	stored := repo.orders[o.ID]
	require.NotNil(t, stored.ActualDeliveryDate)
	for _, it := range stored.Items {
		assert.True(t, it.QuantityDelivered.Equal(it.Quantity))
	}
}

func TestCreateCarriesExpectedDeliveryDate(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	svc := testService(repo)

	expected := time.Now().AddDate(0, 0, 3)
	req := createReq(7, "pay_now", "1", "100")
	req.ExpectedDeliveryDate = &expected

	o, err := svc.Create(context.Background(), req, 1)
	require.NoError(t, err)
	require.NotNil(t, o.ExpectedDeliveryDate)
	assert.True(t, o.ExpectedDeliveryDate.Equal(expected))
	assert.WithinDuration(t, time.Now(), o.OrderDate, time.Minute)
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.calls++
	return nil
}

func TestMutationsBumpInvalidator(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	repo.stock[1] = &memStock{onHand: d("100")}
	inv := &countingInvalidator{}
	svc := testService(repo).WithInvalidator(inv)
	ctx := context.Background()

	o, err := svc.Create(ctx, createReq(7, "pay_now", "10", "120"), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls)

	_, err = svc.Confirm(ctx, o.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, inv.calls)

	_, err = svc.Cancel(ctx, o.ID, "", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, inv.calls)

	// reads leave the cache alone
	_, err = svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, inv.calls)
}

func TestAdvanceRejectsDeliveryOwnedStates(t *testing.T) {
	repo := newMemRepo()
	svc := testService(repo)
	for _, st := range []OrderStatus{StatusAssignedToDelivery, StatusOutForDelivery, StatusDelivered} {
		_, err := svc.Advance(context.Background(), 1, st, 1)
		require.ErrorIs(t, err, shared.ErrValidation, "status %s", st)
	}
}

func TestCancelReleasesStockAndCredit(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_later", 30, "limited", "50000")
	repo.stock[1] = &memStock{onHand: d("100")}
	svc := testService(repo)
	ctx := context.Background()

	o, err := svc.Create(ctx, createReq(7, "pay_later", "10", "120"), 1)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, o.ID, 1)
	require.NoError(t, err)

	got, err := svc.Cancel(ctx, o.ID, "customer withdrew", 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Contains(t, got.Notes, "customer withdrew")
	assert.True(t, repo.stock[1].reserved.IsZero())
	assert.True(t, repo.accounts[7].CurrentBalance.IsZero())
}

func TestCancelRejectsFullyPaidOrder(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	svc := testService(repo)
	ctx := context.Background()

	o, err := svc.Create(ctx, createReq(7, "pay_now", "10", "120"), 1)
	require.NoError(t, err)
	repo.orders[o.ID].PaidAmount = d("1200")
	repo.orders[o.ID].PaymentStatus = PaymentPaid

	_, err = svc.Cancel(ctx, o.ID, "", 1)
	var ite *shared.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestCancelAllowsPartiallyPaidOrder(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	repo.stock[1] = &memStock{onHand: d("100")}
	svc := testService(repo)
	ctx := context.Background()

	o, err := svc.Create(ctx, createReq(7, "pay_now", "10", "120"), 1)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, o.ID, 1)
	require.NoError(t, err)
	repo.orders[o.ID].PaidAmount = d("500")
	repo.orders[o.ID].BalanceDue = d("700")
	repo.orders[o.ID].PaymentStatus = PaymentPartial

	got, err := svc.Cancel(ctx, o.ID, "partial refund pending", 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.True(t, repo.stock[1].reserved.IsZero())
}

func TestCancelConfirmedCreditOrderReversesOpenBalance(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_later", 30, "limited", "50000")
	repo.stock[1] = &memStock{onHand: d("100")}
	svc := testService(repo)
	ctx := context.Background()

	o, err := svc.Create(ctx, createReq(7, "pay_later", "10", "120"), 1)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, o.ID, 1)
	require.NoError(t, err)
	require.True(t, repo.accounts[7].CurrentBalance.Equal(d("1200")))

	// half the total was since paid off and taken back off the balance
	repo.orders[o.ID].PaidAmount = d("600")
	repo.orders[o.ID].BalanceDue = d("600")
	repo.orders[o.ID].PaymentStatus = PaymentPartial
	repo.accounts[7].CurrentBalance = d("600")

	_, err = svc.Cancel(ctx, o.ID, "", 1)
	require.NoError(t, err)
	assert.True(t, repo.accounts[7].CurrentBalance.IsZero())
}

func TestCancelDraftCreditOrderLeavesBalanceAlone(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_later", 30, "limited", "50000")
	svc := testService(repo)
	ctx := context.Background()

	o, err := svc.Create(ctx, createReq(7, "pay_later", "10", "120"), 1)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, o.ID, "never confirmed", 1)
	require.NoError(t, err)
	assert.True(t, repo.accounts[7].CurrentBalance.IsZero())
}

func TestMarkInvoicedIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	repo.stock[1] = &memStock{onHand: d("100")}
	svc := testService(repo)
	ctx := context.Background()

	o, err := svc.Create(ctx, createReq(7, "pay_now", "10", "120"), 1)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, o.ID, 1)
	require.NoError(t, err)

	first, err := svc.MarkInvoiced(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, first.InvoiceNumber)
	assert.Regexp(t, `^INV\d{6}0001$`, *first.InvoiceNumber)

	second, err := svc.MarkInvoiced(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.InvoiceNumber, *second.InvoiceNumber)
}

func TestMarkInvoicedRejectsDraft(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	svc := testService(repo)

	o, err := svc.Create(context.Background(), createReq(7, "pay_now", "1", "1"), 1)
	require.NoError(t, err)

	_, err = svc.MarkInvoiced(context.Background(), o.ID)
	var ite *shared.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
}

func TestUpdateDraftRecomputesTotals(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	svc := testService(repo)
	ctx := context.Background()

	o, err := svc.Create(ctx, createReq(7, "pay_now", "10", "120"), 1)
	require.NoError(t, err)

	shipping := d("50")
	got, err := svc.UpdateDraft(ctx, o.ID, UpdateOrderRequest{
		ShippingCost: &shipping,
		Items: []OrderItemInput{
			{ProductID: 1, ProductName: "Amoxicillin 500mg", Quantity: d("5"), UnitPrice: d("120")},
		},
	})
	require.NoError(t, err)
	assert.True(t, got.Subtotal.Equal(d("600")))
	assert.True(t, got.TotalAmount.Equal(d("650")))
}

func TestUpdateDraftRejectsConfirmedOrder(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	repo.stock[1] = &memStock{onHand: d("100")}
	svc := testService(repo)
	ctx := context.Background()

	o, err := svc.Create(ctx, createReq(7, "pay_now", "10", "120"), 1)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, o.ID, 1)
	require.NoError(t, err)

	notes := "late edit"
	_, err = svc.UpdateDraft(ctx, o.ID, UpdateOrderRequest{Notes: &notes})
	var ite *shared.InvalidTransitionError
	require.True(t, errors.As(err, &ite))
}

func TestReceiptRendersPaidOrder(t *testing.T) {
	repo := newMemRepo()
	seedCustomer(repo, 7, "pay_now", 0, "unlimited", "0")
	svc := testService(repo)
	ctx := context.Background()

	o, err := svc.Create(ctx, createReq(7, "pay_now", "10", "120"), 1)
	require.NoError(t, err)

	_, err = svc.Receipt(ctx, o.ID)
	require.ErrorIs(t, err, shared.ErrValidation)

	repo.orders[o.ID].PaymentStatus = PaymentPaid
	repo.orders[o.ID].PaidAmount = d("1200")
	doc, err := svc.Receipt(ctx, o.ID)
	require.NoError(t, err)
	assert.Contains(t, doc, o.OrderNumber)
	assert.Contains(t, doc, "Amoxicillin 500mg")
	assert.Contains(t, doc, "1,200.00")
}
