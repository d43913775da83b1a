package integration

import (
	"testing"
)

// TestLiveness verifies the liveness endpoint responds.
func TestLiveness(t *testing.T) {
	skipIfNotRunning(t)

	status, _ := httpGet(t, baseURL()+"/health/live")
	requireStatus(t, status, 200)
}

// TestReadiness verifies the readiness endpoint reports healthy dependencies.
func TestReadiness(t *testing.T) {
	skipIfNotRunning(t)

	status, _ := httpGet(t, baseURL()+"/health/ready")
	requireStatus(t, status, 200)
}
