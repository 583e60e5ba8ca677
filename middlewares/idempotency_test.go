package middlewares

import (
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestReplayableStatus(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{fiber.StatusOK, true},
		{fiber.StatusBadRequest, true},
		{fiber.StatusUnauthorized, true},
		{fiber.StatusConflict, true},
		{fiber.StatusInternalServerError, false},
		{fiber.StatusBadGateway, false},
		{fiber.StatusServiceUnavailable, false},
		{fiber.StatusGatewayTimeout, false},
	}
	for _, tc := range cases {
		if got := replayableStatus(tc.status); got != tc.want {
			t.Errorf("replayableStatus(%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
