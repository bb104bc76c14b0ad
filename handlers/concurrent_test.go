// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/dv-appraisal/models"
	"github.com/danielhkuo/dv-appraisal/testutil"
)

// TestConcurrentChatSends verifies that simultaneous messages on one
// appraisal all succeed and get distinct, gapless sequence numbers
func TestConcurrentChatSends(t *testing.T) {
	db := testutil.SetupTestDB(t)

	user, token := testutil.CreateTestUser(t, db, "owner@example.com")
	id := testutil.CreateTestAppraisal(t, db, user.ID, models.StatusSubmitted)
	h := NewChatHandler(db, testutil.GetTestConfig(), testServices())

	numSenders := 10

	// Track results
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numSenders; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			req := testutil.MakeRequest("POST", "/appraisals/"+id+"/chat",
				models.ChatRequest{Message: "question " + strconv.Itoa(idx)}, testutil.AuthHeaders(token))
			w := serve(db, "POST "+chatPattern, h.Send, req)

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	// All sends should succeed
	if int(successCount.Load()) != numSenders {
		t.Errorf("Expected %d successful sends, got %d", numSenders, successCount.Load())
	}

	// Two rows per send with no duplicate or missing seq
	var count, distinct, maxSeq int
	err := db.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT seq), COALESCE(MAX(seq), 0)
		FROM chat_message WHERE appraisal_id = $1
	`, id).Scan(&count, &distinct, &maxSeq)
	if err != nil {
		t.Fatalf("Failed to count chat messages: %v", err)
	}

	if count != 2*numSenders || distinct != count || maxSeq != count {
		t.Errorf("Expected %d messages with seq 1..%d, got count=%d distinct=%d max=%d",
			2*numSenders, 2*numSenders, count, distinct, maxSeq)
	}

	// Each user message is directly followed by its reply
	var orphans int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM chat_message u
		WHERE u.appraisal_id = $1 AND u.role = $2
		AND NOT EXISTS (
			SELECT 1 FROM chat_message a
			WHERE a.appraisal_id = u.appraisal_id AND a.seq = u.seq + 1 AND a.role = $3
		)
	`, id, models.RoleUser, models.RoleAssistant).Scan(&orphans)
	if err != nil {
		t.Fatalf("Failed to check message pairs: %v", err)
	}
	if orphans != 0 {
		t.Errorf("Expected every user message to be followed by a reply, %d were not", orphans)
	}
}
