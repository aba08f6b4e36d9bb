package webapi_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/amirasaad/ledger/webapi/common"
	ledgerweb "github.com/amirasaad/ledger/webapi/ledger"
	purchaseweb "github.com/amirasaad/ledger/webapi/purchase"
	"github.com/amirasaad/ledger/webapi/testutils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

type LedgerE2ETestSuite struct {
	testutils.E2ETestSuite
}

func TestLedgerE2E(t *testing.T) {
	suite.Run(t, new(LedgerE2ETestSuite))
}

func (s *LedgerE2ETestSuite) adjust(token string, accountID uuid.UUID, delta, reason, key string) (int, ledgerweb.AdjustmentResponse) {
	resp := s.MakeRequest(testutils.Request{
		Method: fiber.MethodPost,
		Path:   "/balance-adjustments",
		Token:  token,
		Body: map[string]string{
			"accountId":      accountID.String(),
			"delta":          delta,
			"reason":         reason,
			"idempotencyKey": key,
		},
	})
	if resp.StatusCode != fiber.StatusCreated {
		return resp.StatusCode, ledgerweb.AdjustmentResponse{}
	}
	return resp.StatusCode, testutils.DecodeBody[ledgerweb.AdjustmentResponse](s.T(), resp)
}

func (s *LedgerE2ETestSuite) balance(token string, accountID uuid.UUID) string {
	resp := s.MakeRequest(testutils.Request{
		Method: fiber.MethodGet,
		Path:   "/balance/" + accountID.String(),
		Token:  token,
	})
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	return testutils.DecodeBody[ledgerweb.BalanceResponse](s.T(), resp).Balance.String()
}

func (s *LedgerE2ETestSuite) TestScenario() {
	admin := s.PromoteAdmin(s.RegisterUser())
	customer := s.RegisterUser()

	status, first := s.adjust(admin.Token, customer.AccountID, "50.00", "top_up", "k1")
	s.Require().Equal(fiber.StatusCreated, status)
	s.Equal("50.00", first.NewBalance.String())

	status, second := s.adjust(admin.Token, customer.AccountID, "-30.00", "purchase", "k2")
	s.Require().Equal(fiber.StatusCreated, status)
	s.Equal("20.00", second.NewBalance.String())

	status, _ = s.adjust(admin.Token, customer.AccountID, "-25.00", "purchase", "k3")
	s.Equal(fiber.StatusUnprocessableEntity, status)

	status, replay := s.adjust(admin.Token, customer.AccountID, "50.00", "top_up", "k1")
	s.Equal(fiber.StatusCreated, status)
	s.Equal(first.EntryID, replay.EntryID)

	s.Equal("20.00", s.balance(customer.Token, customer.AccountID))

	resp := s.MakeRequest(testutils.Request{
		Method: fiber.MethodGet,
		Path:   "/ledger/" + customer.AccountID.String(),
		Token:  customer.Token,
	})
	s.Require().Equal(fiber.StatusOK, resp.StatusCode)
	page := testutils.DecodeBody[ledgerweb.EntryPageResponse](s.T(), resp)
	s.Require().Len(page.Entries, 2)
	s.Equal(int64(1), page.Entries[0].Sequence)
	s.Equal(int64(2), page.Entries[1].Sequence)

	rec, err := s.Harness.App.LedgerService.Reconcile(context.Background(), customer.AccountID)
	s.Require().NoError(err)
	s.True(rec.Consistent)
}

func (s *LedgerE2ETestSuite) TestConcurrentDebitsNeverOverdraw() {
	admin := s.PromoteAdmin(s.RegisterUser())
	customer := s.RegisterUser()

	status, _ := s.adjust(admin.Token, customer.AccountID, "10.00", "top_up", "seed")
	s.Require().Equal(fiber.StatusCreated, status)

	statuses := make([]int, 20)
	var g errgroup.Group
	for i := range statuses {
		g.Go(func() error {
			statuses[i], _ = s.adjust(admin.Token, customer.AccountID, "-1.00", "purchase", fmt.Sprintf("debit-%d", i))
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	var created, rejected int
	for _, st := range statuses {
		switch st {
		case fiber.StatusCreated:
			created++
		case fiber.StatusUnprocessableEntity:
			rejected++
		}
	}
	s.Equal(10, created)
	s.Equal(10, rejected)
	s.Equal("0.00", s.balance(admin.Token, customer.AccountID))

	rec, err := s.Harness.App.LedgerService.Reconcile(context.Background(), customer.AccountID)
	s.Require().NoError(err)
	s.True(rec.Consistent)
	s.Equal(int64(11), rec.Entries)
}

func (s *LedgerE2ETestSuite) TestCheckoutCommitsPurchaseWithDebit() {
	admin := s.PromoteAdmin(s.RegisterUser())
	buyer := s.RegisterUser()
	status, _ := s.adjust(admin.Token, buyer.AccountID, "25.00", "top_up", "fund")
	s.Require().Equal(fiber.StatusCreated, status)

	body := map[string]any{
		"items": []map[string]any{{"productId": "sku-1", "name": "Mug", "quantity": 2, "unitPrice": "7.50"}},
		"total": "15.00",
	}
	checkout := func() *purchaseweb.CheckoutResponse {
		resp := s.MakeRequest(testutils.Request{
			Method:  fiber.MethodPost,
			Path:    "/purchases",
			Token:   buyer.Token,
			Body:    body,
			Headers: map[string]string{common.HeaderIdempotencyKey: "order-1"},
		})
		s.Require().Equal(fiber.StatusCreated, resp.StatusCode)
		out := testutils.DecodeBody[testutils.Envelope[purchaseweb.CheckoutResponse]](s.T(), resp)
		return &out.Data
	}

	first := checkout()
	s.Equal("10.00", first.NewBalance.String())
	again := checkout()
	s.Equal(first.Purchase.ID, again.Purchase.ID)
	s.Equal("10.00", s.balance(buyer.Token, buyer.AccountID))
}
