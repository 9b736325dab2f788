//go:build e2e

package order_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"bookstore/internal/domain/user"
	"bookstore/internal/handler/dto/request"
	"bookstore/internal/handler/dto/response"
	"bookstore/tests/common/authtest"
	"bookstore/tests/common/dbtest"
	"bookstore/tests/common/httptest"
	"bookstore/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	ordersURL       = "/api/orders"
	cartLinesURL    = "/api/cart/lines"
	orderStatusURL  = "/api/orders/%s/status"
	orderCancelURL  = "/api/orders/%s/cancel"
	pickupURL       = "/api/orders/pickup/%s"
	pickupVerifyURL = "/api/orders/pickup/%s/verify"
)

type OrderSuite struct {
	e2e.SharedSuite
}

func (s *OrderSuite) SetupSubTest() {
	s.SharedSuite.SetupSubTest()
}

func TestOrderSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(OrderSuite))
}

func (s *OrderSuite) addToCart(t *testing.T, token string, bookID uuid.UUID, quantity int) {
	t.Helper()
	w := httptest.PerformRequest(t, s.Router, http.MethodPut, cartLinesURL,
		request.SetCartLineRequest{BookID: bookID, Quantity: quantity}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (s *OrderSuite) placeOrder(t *testing.T, token string) response.OrderResponse {
	t.Helper()
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, nil, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order response.OrderResponse
	require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &order))
	return order
}

func (s *OrderSuite) placeOrderWithLoyalty(t *testing.T, token string) response.OrderResponse {
	t.Helper()
	w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL,
		request.PlaceOrderRequest{UseLoyalty: true}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order response.OrderResponse
	require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &order))
	return order
}

func (s *OrderSuite) availableQuantity(t *testing.T, bookID uuid.UUID) int {
	t.Helper()
	var qty int
	err := s.DB.QueryRow(context.Background(),
		"SELECT available_quantity FROM books WHERE id = $1", bookID).Scan(&qty)
	require.NoError(t, err)
	return qty
}

// =============================================================================
// TestCheckout - Cart to order placement
// =============================================================================

func (s *OrderSuite) TestCheckout() {
	s.Run("Normal case: full flow from cart to counter pickup", func() {
		t := s.T()

		dbtest.CreateTestUser(t, s.DB, "buyer@example.com", string(user.RoleCustomer))
		dbtest.CreateTestUser(t, s.DB, "clerk@example.com", string(user.RoleStaff))
		bookID := dbtest.CreateTestBook(t, s.DB, "Distributed Systems", 2500, 10)

		buyerToken := authtest.LoginUser(t, s.Router, "buyer@example.com", "password123")
		s.addToCart(t, buyerToken, bookID, 2)

		order := s.placeOrder(t, buyerToken)
		require.Equal(t, "pending", order.Status)
		require.Equal(t, int64(5000), order.SubtotalCents)
		require.Equal(t, int64(5000), order.TotalCents)
		require.Len(t, order.ClaimCode, 8)
		require.Equal(t, 8, s.availableQuantity(t, bookID), "stock should be reserved")

		// カートは空になっているはず
		cw := httptest.PerformRequest(t, s.Router, http.MethodGet, "/api/cart", nil, buyerToken)
		require.Equal(t, http.StatusOK, cw.Code)
		var cart response.CartResponse
		require.NoError(t, httptest.DecodeResponseBody(t, cw.Body, &cart))
		require.Empty(t, cart.Lines, "cart should be cleared after checkout")

		clerkToken := authtest.LoginUser(t, s.Router, "clerk@example.com", "password123")

		// 受け取り可能にする
		sw := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf(orderStatusURL, order.ID),
			request.AdvanceOrderStatusRequest{Status: "ready_for_pickup"}, clerkToken)
		require.Equal(t, http.StatusOK, sw.Code, sw.Body.String())

		// クレームコードで照会
		lw := httptest.PerformRequest(t, s.Router, http.MethodGet,
			fmt.Sprintf(pickupURL, order.ClaimCode), nil, clerkToken)
		require.Equal(t, http.StatusOK, lw.Code, lw.Body.String())
		var looked response.OrderResponse
		require.NoError(t, httptest.DecodeResponseBody(t, lw.Body, &looked))
		require.Equal(t, order.ID, looked.ID)

		// 受け渡し完了
		vw := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf(pickupVerifyURL, order.ClaimCode), nil, clerkToken)
		require.Equal(t, http.StatusOK, vw.Code, vw.Body.String())
		var completed response.OrderResponse
		require.NoError(t, httptest.DecodeResponseBody(t, vw.Body, &completed))
		require.Equal(t, "completed", completed.Status)

		// 完了済みコードでの再照会は404
		lw2 := httptest.PerformRequest(t, s.Router, http.MethodGet,
			fmt.Sprintf(pickupURL, order.ClaimCode), nil, clerkToken)
		require.Equal(t, http.StatusNotFound, lw2.Code)
	})

	s.Run("Normal case: bulk discount at five units", func() {
		t := s.T()

		dbtest.CreateTestUser(t, s.DB, "bulk@example.com", string(user.RoleCustomer))
		bookID := dbtest.CreateTestBook(t, s.DB, "Go in Practice", 2000, 10)

		token := authtest.LoginUser(t, s.Router, "bulk@example.com", "password123")
		s.addToCart(t, token, bookID, 5)

		order := s.placeOrder(t, token)
		require.Equal(t, int64(10000), order.SubtotalCents)
		require.Equal(t, int64(500), order.DiscountCents)
		require.Equal(t, int64(9500), order.TotalCents)
		require.True(t, order.BulkApplied)
		require.False(t, order.LoyaltyApplied)
	})

	s.Run("Normal case: loyalty grant consumed when requested", func() {
		t := s.T()

		ownerID := dbtest.CreateTestUser(t, s.DB, "loyal@example.com", string(user.RoleCustomer))
		bookID := dbtest.CreateTestBook(t, s.DB, "SRE Workbook", 10000, 5)
		grantID := dbtest.CreateTestGrant(t, s.DB, ownerID, 10.0)

		token := authtest.LoginUser(t, s.Router, "loyal@example.com", "password123")
		s.addToCart(t, token, bookID, 1)

		order := s.placeOrderWithLoyalty(t, token)
		require.True(t, order.LoyaltyApplied)
		require.Equal(t, int64(1000), order.DiscountCents)
		require.Equal(t, int64(9000), order.TotalCents)

		var usedOn *uuid.UUID
		err := s.DB.QueryRow(context.Background(),
			"SELECT used_on_order_id FROM loyalty_grants WHERE id = $1", grantID).Scan(&usedOn)
		require.NoError(t, err)
		require.NotNil(t, usedOn)
		require.Equal(t, order.ID, *usedOn)
	})

	s.Run("Normal case: grant stays on the shelf without the loyalty flag", func() {
		t := s.T()

		ownerID := dbtest.CreateTestUser(t, s.DB, "saver@example.com", string(user.RoleCustomer))
		bookID := dbtest.CreateTestBook(t, s.DB, "Saved for Later", 2000, 5)
		grantID := dbtest.CreateTestGrant(t, s.DB, ownerID, 10.0)

		token := authtest.LoginUser(t, s.Router, "saver@example.com", "password123")

		ew := httptest.PerformRequest(t, s.Router, http.MethodGet, "/api/loyalty/eligibility", nil, token)
		require.Equal(t, http.StatusOK, ew.Code)
		var elig response.LoyaltyEligibilityResponse
		require.NoError(t, httptest.DecodeResponseBody(t, ew.Body, &elig))
		require.True(t, elig.Eligible)

		s.addToCart(t, token, bookID, 1)

		order := s.placeOrder(t, token)
		require.False(t, order.LoyaltyApplied)
		require.Equal(t, int64(2000), order.TotalCents)

		var usedOn *uuid.UUID
		err := s.DB.QueryRow(context.Background(),
			"SELECT used_on_order_id FROM loyalty_grants WHERE id = $1", grantID).Scan(&usedOn)
		require.NoError(t, err)
		require.Nil(t, usedOn, "grant should remain unused")
	})

	s.Run("Normal case: promotional book price is frozen on the order line", func() {
		t := s.T()

		dbtest.CreateTestUser(t, s.DB, "promo@example.com", string(user.RoleCustomer))
		bookID := dbtest.CreateDiscountedTestBook(t, s.DB, "Database Internals", 4000, 5, 25.0)

		token := authtest.LoginUser(t, s.Router, "promo@example.com", "password123")
		s.addToCart(t, token, bookID, 1)

		order := s.placeOrder(t, token)
		require.Equal(t, int64(3000), order.SubtotalCents, "25%% off should be frozen into the line")
		require.Len(t, order.Items, 1)
		require.Equal(t, int64(4000), order.Items[0].UnitPriceCents, "original price kept for the record")
	})

	s.Run("Error case: empty cart is rejected", func() {
		t := s.T()

		dbtest.CreateTestUser(t, s.DB, "empty@example.com", string(user.RoleCustomer))
		token := authtest.LoginUser(t, s.Router, "empty@example.com", "password123")

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, nil, token)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	s.Run("Error case: second buyer loses the race for the last copy", func() {
		t := s.T()

		dbtest.CreateTestUser(t, s.DB, "first@example.com", string(user.RoleCustomer))
		dbtest.CreateTestUser(t, s.DB, "second@example.com", string(user.RoleCustomer))
		bookID := dbtest.CreateTestBook(t, s.DB, "Last Copy", 1500, 1)

		firstToken := authtest.LoginUser(t, s.Router, "first@example.com", "password123")
		secondToken := authtest.LoginUser(t, s.Router, "second@example.com", "password123")

		s.addToCart(t, firstToken, bookID, 1)
		s.addToCart(t, secondToken, bookID, 1)

		s.placeOrder(t, firstToken)

		w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, nil, secondToken)
		require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
		require.Equal(t, 0, s.availableQuantity(t, bookID))
	})
}

// =============================================================================
// TestConcurrentCheckout - Racing checkouts against shared stock and grants
// =============================================================================

func (s *OrderSuite) TestConcurrentCheckout() {
	s.Run("Normal case: concurrent buyers cannot oversell", func() {
		t := s.T()

		dbtest.CreateTestUser(t, s.DB, "racer1@example.com", string(user.RoleCustomer))
		dbtest.CreateTestUser(t, s.DB, "racer2@example.com", string(user.RoleCustomer))
		bookID := dbtest.CreateTestBook(t, s.DB, "Contended Copy", 1000, 3)

		tokens := []string{
			authtest.LoginUser(t, s.Router, "racer1@example.com", "password123"),
			authtest.LoginUser(t, s.Router, "racer2@example.com", "password123"),
		}
		for _, token := range tokens {
			s.addToCart(t, token, bookID, 2)
		}

		// 在庫3に対して2個ずつの同時購入。勝者は一人だけ
		codes := make([]int, len(tokens))
		var wg sync.WaitGroup
		for i, token := range tokens {
			wg.Add(1)
			go func(i int, token string) {
				defer wg.Done()
				w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL, nil, token)
				codes[i] = w.Code
			}(i, token)
		}
		wg.Wait()

		require.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, codes,
			"exactly one checkout wins the remaining stock")
		require.Equal(t, 1, s.availableQuantity(t, bookID), "no oversell, no lost reservation")

		var placed int
		err := s.DB.QueryRow(context.Background(),
			"SELECT count(*) FROM orders WHERE status = 'pending'").Scan(&placed)
		require.NoError(t, err)
		require.Equal(t, 1, placed)
	})

	s.Run("Normal case: one grant cannot be double-spent by concurrent checkouts", func() {
		t := s.T()

		ownerID := dbtest.CreateTestUser(t, s.DB, "racer3@example.com", string(user.RoleCustomer))
		bookID := dbtest.CreateTestBook(t, s.DB, "Twice Tempting", 2000, 10)
		grantID := dbtest.CreateTestGrant(t, s.DB, ownerID, 10.0)

		token := authtest.LoginUser(t, s.Router, "racer3@example.com", "password123")
		s.addToCart(t, token, bookID, 1)

		// 同一カートに対する二重送信。SKIP LOCKED が二重消費を防ぐ
		const attempts = 2
		codes := make([]int, attempts)
		var wg sync.WaitGroup
		for i := range attempts {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				w := httptest.PerformRequest(t, s.Router, http.MethodPost, ordersURL,
					request.PlaceOrderRequest{UseLoyalty: true}, token)
				codes[i] = w.Code
			}(i)
		}
		wg.Wait()

		for _, code := range codes {
			require.Contains(t, []int{http.StatusCreated, http.StatusUnprocessableEntity}, code,
				"a duplicate submit either places or finds the cart already cleared")
		}
		require.Contains(t, codes, http.StatusCreated)

		var spenders int
		err := s.DB.QueryRow(context.Background(),
			"SELECT count(*) FROM orders WHERE loyalty_grant_id = $1", grantID).Scan(&spenders)
		require.NoError(t, err)
		require.LessOrEqual(t, spenders, 1, "the grant backs at most one order")

		var usedOn *uuid.UUID
		err = s.DB.QueryRow(context.Background(),
			"SELECT used_on_order_id FROM loyalty_grants WHERE id = $1", grantID).Scan(&usedOn)
		require.NoError(t, err)
		require.NotNil(t, usedOn, "the winning checkout consumed the grant")
	})
}

// =============================================================================
// TestCancel - Order cancellation
// =============================================================================

func (s *OrderSuite) TestCancel() {
	s.Run("Normal case: cancellation releases stock", func() {
		t := s.T()

		dbtest.CreateTestUser(t, s.DB, "cancel@example.com", string(user.RoleCustomer))
		bookID := dbtest.CreateTestBook(t, s.DB, "Refactoring", 3000, 4)

		token := authtest.LoginUser(t, s.Router, "cancel@example.com", "password123")
		s.addToCart(t, token, bookID, 3)
		order := s.placeOrder(t, token)
		require.Equal(t, 1, s.availableQuantity(t, bookID))

		w := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf(orderCancelURL, order.ID), nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var cancelled response.OrderResponse
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &cancelled))
		require.Equal(t, "cancelled", cancelled.Status)
		require.Equal(t, 4, s.availableQuantity(t, bookID), "stock should return to the shelf")
	})

	s.Run("Error case: completed order cannot be cancelled", func() {
		t := s.T()

		dbtest.CreateTestUser(t, s.DB, "done@example.com", string(user.RoleCustomer))
		dbtest.CreateTestUser(t, s.DB, "clerk2@example.com", string(user.RoleStaff))
		bookID := dbtest.CreateTestBook(t, s.DB, "Finished Book", 1000, 2)

		token := authtest.LoginUser(t, s.Router, "done@example.com", "password123")
		s.addToCart(t, token, bookID, 1)
		order := s.placeOrder(t, token)

		clerkToken := authtest.LoginUser(t, s.Router, "clerk2@example.com", "password123")
		sw := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf(orderStatusURL, order.ID),
			request.AdvanceOrderStatusRequest{Status: "completed"}, clerkToken)
		require.Equal(t, http.StatusOK, sw.Code, sw.Body.String())

		w := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf(orderCancelURL, order.ID), nil, token)
		require.Equal(t, http.StatusConflict, w.Code)
	})

	s.Run("Error case: other customers cannot see or cancel the order", func() {
		t := s.T()

		dbtest.CreateTestUser(t, s.DB, "owner@example.com", string(user.RoleCustomer))
		dbtest.CreateTestUser(t, s.DB, "stranger@example.com", string(user.RoleCustomer))
		bookID := dbtest.CreateTestBook(t, s.DB, "Private Order", 1000, 2)

		ownerToken := authtest.LoginUser(t, s.Router, "owner@example.com", "password123")
		s.addToCart(t, ownerToken, bookID, 1)
		order := s.placeOrder(t, ownerToken)

		strangerToken := authtest.LoginUser(t, s.Router, "stranger@example.com", "password123")

		gw := httptest.PerformRequest(t, s.Router, http.MethodGet,
			ordersURL+"/"+order.ID.String(), nil, strangerToken)
		require.Equal(t, http.StatusNotFound, gw.Code, "existence should not leak")

		cw := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf(orderCancelURL, order.ID), nil, strangerToken)
		require.Equal(t, http.StatusNotFound, cw.Code)
	})
}

// =============================================================================
// TestStaffGuards - Role enforcement on fulfillment routes
// =============================================================================

func (s *OrderSuite) TestStaffGuards() {
	s.Run("Error case: customers cannot drive fulfillment", func() {
		t := s.T()

		dbtest.CreateTestUser(t, s.DB, "plain@example.com", string(user.RoleCustomer))
		bookID := dbtest.CreateTestBook(t, s.DB, "Guarded Book", 1000, 2)

		token := authtest.LoginUser(t, s.Router, "plain@example.com", "password123")
		s.addToCart(t, token, bookID, 1)
		order := s.placeOrder(t, token)

		sw := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf(orderStatusURL, order.ID),
			request.AdvanceOrderStatusRequest{Status: "confirmed"}, token)
		require.Equal(t, http.StatusForbidden, sw.Code)

		lw := httptest.PerformRequest(t, s.Router, http.MethodGet,
			fmt.Sprintf(pickupURL, order.ClaimCode), nil, token)
		require.Equal(t, http.StatusForbidden, lw.Code)

		vw := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf(pickupVerifyURL, order.ClaimCode), nil, token)
		require.Equal(t, http.StatusForbidden, vw.Code)
	})

	s.Run("Normal case: tenth completed order earns a loyalty grant", func() {
		t := s.T()

		ownerID := dbtest.CreateTestUser(t, s.DB, "regular@example.com", string(user.RoleCustomer))
		dbtest.CreateTestUser(t, s.DB, "clerk3@example.com", string(user.RoleStaff))
		bookID := dbtest.CreateTestBook(t, s.DB, "Regular's Pick", 500, 100)

		// 9件の完了済み注文を直接投入
		for i := range 9 {
			_, err := s.DB.Exec(context.Background(),
				`INSERT INTO orders (id, owner_id, status, claim_code, subtotal_cents, discount_cents, total_cents)
				 VALUES ($1, $2, 'completed', $3, 500, 0, 500)`,
				uuid.New(), ownerID, fmt.Sprintf("DONE23%02d", i+10))
			require.NoError(t, err)
		}

		token := authtest.LoginUser(t, s.Router, "regular@example.com", "password123")
		s.addToCart(t, token, bookID, 1)
		order := s.placeOrder(t, token)

		clerkToken := authtest.LoginUser(t, s.Router, "clerk3@example.com", "password123")
		sw := httptest.PerformRequest(t, s.Router, http.MethodPost,
			fmt.Sprintf(orderStatusURL, order.ID),
			request.AdvanceOrderStatusRequest{Status: "completed"}, clerkToken)
		require.Equal(t, http.StatusOK, sw.Code, sw.Body.String())

		var grants int
		err := s.DB.QueryRow(context.Background(),
			"SELECT count(*) FROM loyalty_grants WHERE owner_id = $1 AND source_checkpoint = 10", ownerID).Scan(&grants)
		require.NoError(t, err)
		require.Equal(t, 1, grants, "checkpoint grant should be issued exactly once")
	})
}
