//go:build integration

package integration

import (
	"fmt"
	"sync/atomic"
	"time"
)

// TestPassword is the password of every seeded account
const TestPassword = "TestPassword123"

var userSeq atomic.Int64

// TestUsername returns a unique valid username for a test
func TestUsername(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, userSeq.Add(1)%100000)
}

// TestEmail derives the address seeded for username
func TestEmail(username string) string {
	return fmt.Sprintf("%s-%d@example.com", username, time.Now().Unix())
}
