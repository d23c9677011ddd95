package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blood-donation/internal/domain"
	"blood-donation/internal/middleware"
)

type stubFulfillment struct {
	result *domain.FulfillmentResult
	err    error
	got    []uuid.UUID
}

func (s *stubFulfillment) FulfillRequest(_ context.Context, _ domain.Actor, _ uuid.UUID, unitIDs []uuid.UUID) (*domain.FulfillmentResult, error) {
	s.got = unitIDs
	return s.result, s.err
}

func (s *stubFulfillment) FulfillHospitalRequest(ctx context.Context, actor domain.Actor, id uuid.UUID, unitIDs []uuid.UUID) (*domain.FulfillmentResult, error) {
	return s.FulfillRequest(ctx, actor, id, unitIDs)
}

func (s *stubFulfillment) UpdateRequestStatus(context.Context, domain.Actor, uuid.UUID, domain.UpdateRequestStatusInput) (*domain.BloodRequest, error) {
	return nil, s.err
}

func (s *stubFulfillment) RespondToRequest(context.Context, domain.Actor, uuid.UUID, domain.RespondToRequestInput) (*domain.HospitalBloodRequest, error) {
	return nil, s.err
}

func (s *stubFulfillment) CancelHospitalRequest(context.Context, domain.Actor, uuid.UUID) (*domain.HospitalBloodRequest, error) {
	return nil, s.err
}

func (s *stubFulfillment) ExpireOverdueHospitalRequests(context.Context) (int, error) {
	return 0, s.err
}

func (s *stubFulfillment) ReleaseUnit(context.Context, domain.Actor, uuid.UUID) (*domain.BloodUnit, error) {
	return nil, s.err
}

func fulfillApp(stub *stubFulfillment, actor domain.Actor) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zap.NewNop())})
	h := NewBloodRequestHandler(nil, stub)
	app.Post("/requests/:id/fulfill", func(c *fiber.Ctx) error {
		c.Locals(middleware.ActorContextKey, actor)
		return c.Next()
	}, h.Fulfill)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestFulfill_InvalidUnitsKeepsResultBody(t *testing.T) {
	requestID, unitID := uuid.New(), uuid.New()
	stub := &stubFulfillment{
		result: &domain.FulfillmentResult{RequestID: requestID, Error: "invalid or unavailable units", FailedUnitIDs: []uuid.UUID{unitID}},
		err:    domain.ErrInvalidUnits,
	}
	app := fulfillApp(stub, domain.HospitalActor(uuid.New(), "general"))

	status, body := postJSON(t, app, "/requests/"+requestID.String()+"/fulfill", fiber.Map{"unit_ids": []string{unitID.String()}})

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "invalid or unavailable units", body["error"])
	assert.Equal(t, []uuid.UUID{unitID}, stub.got)
}

func TestFulfill_SuccessAndLostRace(t *testing.T) {
	requestID := uuid.New()
	actor := domain.HospitalActor(uuid.New(), "general")

	ok := &stubFulfillment{result: &domain.FulfillmentResult{Success: true, RequestID: requestID, ReservedCount: 1, Status: domain.RequestFulfilled}}
	status, body := postJSON(t, fulfillApp(ok, actor), "/requests/"+requestID.String()+"/fulfill", fiber.Map{"unit_ids": []string{uuid.NewString()}})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "fulfilled", body["status"])

	raced := &stubFulfillment{
		result: &domain.FulfillmentResult{RequestID: requestID},
		err:    &domain.PartialReservationError{FailedUnitIDs: []uuid.UUID{uuid.New()}},
	}
	status, body = postJSON(t, fulfillApp(raced, actor), "/requests/"+requestID.String()+"/fulfill", fiber.Map{"unit_ids": []string{uuid.NewString()}})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Contains(t, body["error"], "could not be reserved")
}

func TestFulfill_BadRequestID(t *testing.T) {
	app := fulfillApp(&stubFulfillment{}, domain.HospitalActor(uuid.New(), "general"))
	status, body := postJSON(t, app, "/requests/not-a-uuid/fulfill", fiber.Map{})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid request ID", body["message"])
}

func TestBloodTypeValue(t *testing.T) {
	cases := map[string]domain.BloodType{
		"O+":  domain.BloodTypeOPos,
		"O ":  domain.BloodTypeOPos,
		"ab ": domain.BloodTypeABPos,
		"a-":  domain.BloodTypeANeg,
		"B−":  domain.BloodTypeBNeg,
	}
	for raw, want := range cases {
		got, err := bloodTypeValue(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := bloodTypeValue("")
	assert.ErrorIs(t, err, domain.ErrInvalidBloodType)
}

func TestReleaseUnit_HeldByActiveRequest(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zap.NewNop())})
	h := NewInventoryHandler(nil, &stubFulfillment{err: domain.ErrReservationActive})
	app.Post("/units/:id/release", func(c *fiber.Ctx) error {
		c.Locals(middleware.ActorContextKey, domain.HospitalActor(uuid.New(), "general"))
		return c.Next()
	}, h.Release)

	status, body := postJSON(t, app, "/units/"+uuid.NewString()+"/release", fiber.Map{})

	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "RESERVATION_ACTIVE", body["code"])
}
