package bookingsvc

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
)

func newTestService(m *repoMock) *service {
	return &service{
		r:   m,
		log: testLogger(),
		now: func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func validRequest() SubmitRequest {
	return SubmitRequest{
		FullName: "Anna Andersson",
		Email:    "anna@example.com",
		Phone:    "070-1234567",
		Address:  "Storgatan 1",
		Pickup:   "02-03-2025 10:00",
		Return:   "05-03-2025 10:00",
		Items:    []SubmitItem{{ID: "7", Quantity: 1}},
	}
}

func TestSubmit_Validation(t *testing.T) {
	writes := 0
	s := newTestService(&repoMock{createFn: func(ctx context.Context, fields map[string]any) (map[string]any, error) {
		writes++
		return map[string]any{}, nil
	}})

	cases := []struct {
		name   string
		mutate func(*SubmitRequest)
		want   ErrCode
	}{
		{"no items", func(r *SubmitRequest) { r.Items = nil }, ErrNoItems},
		{"bad pickup format", func(r *SubmitRequest) { r.Pickup = "2025-03-02 10:00" }, ErrBadDate},
		{"bad return format", func(r *SubmitRequest) { r.Return = "tomorrow" }, ErrBadDate},
		{"pickup in past", func(r *SubmitRequest) { r.Pickup = "28-02-2025 10:00" }, ErrPickupInPast},
		{"return before pickup", func(r *SubmitRequest) { r.Return = "02-03-2025 09:00" }, ErrReturnBeforePickup},
		{"return equals pickup", func(r *SubmitRequest) { r.Return = "02-03-2025 10:00" }, ErrReturnBeforePickup},
		{"ten day span", func(r *SubmitRequest) { r.Return = "12-03-2025 10:00" }, ErrBookingTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			_, err := s.Submit(context.Background(), req)
			require.Error(t, err)
			require.Equal(t, tc.want, Code(err))
		})
	}

	require.Zero(t, writes, "no row may be written for an invalid booking")
}

func TestSubmit_PastPickupCheckUsesStockholmTime(t *testing.T) {
	// 12:30 UTC is 13:30 in Stockholm (CET), so a 13:00 local pickup is
	// already half an hour gone. Read as UTC it would wrongly look future.
	s := newTestService(&repoMock{createFn: func(ctx context.Context, fields map[string]any) (map[string]any, error) {
		t.Fatal("no row may be written for a past pickup")
		return nil, nil
	}})
	s.now = func() time.Time { return time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC) }

	req := validRequest()
	req.Pickup = "01-03-2025 13:00"
	req.Return = "03-03-2025 10:00"

	_, err := s.Submit(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, ErrPickupInPast, Code(err))
}

func TestSubmit_SevenDaySpanIsAllowed(t *testing.T) {
	s := newTestService(&repoMock{})
	req := validRequest()
	req.Return = "09-03-2025 10:00"

	out, err := s.Submit(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out.Submitted, 1)
}

func TestSubmit_OneRowPerItem(t *testing.T) {
	var rows []map[string]any
	s := newTestService(&repoMock{createFn: func(ctx context.Context, fields map[string]any) (map[string]any, error) {
		rows = append(rows, fields)
		return map[string]any{"Id": float64(len(rows))}, nil
	}})

	req := validRequest()
	req.Notes = "leave at the door"
	req.Items = []SubmitItem{{ID: "7", Quantity: 2}, {ID: "9", Quantity: 1}}

	out, err := s.Submit(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, out.Submitted, 2)
	require.Empty(t, out.Failed)
	require.False(t, out.PartialSuccess())

	require.Len(t, rows, 2)
	require.Equal(t, "7", rows[0]["Product"])
	require.Equal(t, 2, rows[0]["Quantity"])
	require.Equal(t, "9", rows[1]["Product"])
	// renter fields are shared across rows
	for _, row := range rows {
		require.Equal(t, "Anna Andersson", row["Name"])
		require.Equal(t, "02-03-2025 10:00", row["Pickup date-time"])
		require.Equal(t, "05-03-2025 10:00", row["Return date-time"])
		require.Equal(t, "leave at the door", row["Notes"])
	}
}

func TestSubmit_PartialFailureReported(t *testing.T) {
	s := newTestService(&repoMock{createFn: func(ctx context.Context, fields map[string]any) (map[string]any, error) {
		if fields["Product"] == "9" {
			return nil, errors.New("insert rejected")
		}
		return map[string]any{}, nil
	}})

	req := validRequest()
	req.Items = []SubmitItem{{ID: "7", Quantity: 1}, {ID: "9", Quantity: 1}}

	out, err := s.Submit(context.Background(), req)
	require.NoError(t, err, "write failures are reported in the result, not as an error")
	require.Len(t, out.Submitted, 1)
	require.Len(t, out.Failed, 1)
	require.Equal(t, "9", out.Failed[0].Product)
	require.True(t, out.PartialSuccess())
}

func TestSubmit_AllWritesFailedIsNotPartial(t *testing.T) {
	s := newTestService(&repoMock{createFn: func(ctx context.Context, fields map[string]any) (map[string]any, error) {
		return nil, errors.New("down")
	}})

	out, err := s.Submit(context.Background(), validRequest())
	require.NoError(t, err)
	require.Empty(t, out.Submitted)
	require.Len(t, out.Failed, 1)
	require.False(t, out.PartialSuccess())
}
