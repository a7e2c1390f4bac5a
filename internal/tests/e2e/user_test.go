//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/tko-aly/usersvc/config"
	"github.com/tko-aly/usersvc/internal/mq"
	"github.com/tko-aly/usersvc/types"
)

func TestDisclosureLifecycle(t *testing.T) {
	suffix := time.Now().UnixNano()
	adminName := fmt.Sprintf("admin_%d", suffix)
	memberName := fmt.Sprintf("member_%d", suffix)
	serviceName := fmt.Sprintf("library_%d", suffix)
	password := "testpass123!"

	registerUser(t, adminName, password)
	member := registerUser(t, memberName, password)
	if err := promoteUser(adminName, types.RoleYllapitaja); err != nil {
		t.Fatalf("promote user: %v", err)
	}
	adminToken := login(t, adminName, password)

	var created struct {
		DataPermissions int64    `json:"dataPermissions"`
		Fields          []string `json:"fields"`
	}
	doJSON(t, http.MethodPost, "/services", adminToken, map[string]any{
		"serviceName": serviceName,
		"displayName": "Library",
		"redirectUrl": "https://library.example.com/return",
		"fields":      []string{"id", "username", "email"},
	}, http.StatusCreated, &created)
	if strings.Join(created.Fields, ",") != "id,username,email" {
		t.Fatalf("unexpected service fields %v", created.Fields)
	}

	var disclosure struct {
		DisplayName string          `json:"displayName"`
		RedirectTo  string          `json:"redirectTo"`
		Fields      json.RawMessage `json:"fields"`
		Token       string          `json:"token"`
		ReceiptID   string          `json:"receiptId"`
	}
	doJSON(t, http.MethodPost, "/auth/disclosure", "", map[string]string{
		"serviceName": serviceName,
		"username":    memberName,
		"password":    password,
	}, http.StatusOK, &disclosure)
	wantFields := fmt.Sprintf(`{"id":%d,"username":%q,"email":%q}`, member.ID, memberName, memberName+"@example.com")
	if string(disclosure.Fields) != wantFields {
		t.Fatalf("expected %s, got %s", wantFields, disclosure.Fields)
	}
	if disclosure.RedirectTo != "https://library.example.com/return" {
		t.Fatalf("unexpected redirect %q", disclosure.RedirectTo)
	}

	var masked map[string]any
	doJSON(t, http.MethodGet, "/users/me", disclosure.Token, nil, http.StatusOK, &masked)
	if len(masked) != 3 {
		t.Fatalf("expected three masked fields, got %v", masked)
	}

	var receipt types.DisclosureReceipt
	doJSON(t, http.MethodGet, "/disclosures/"+disclosure.ReceiptID, adminToken, nil, http.StatusOK, &receipt)
	if receipt.UserID != member.ID || receipt.ServiceName != serviceName {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	doJSON(t, http.MethodPost, "/auth/disclosure", "", map[string]string{
		"serviceName": serviceName,
		"username":    memberName,
		"password":    "wrong",
	}, http.StatusUnauthorized, nil)
}

func TestUpdatePublishesEvent(t *testing.T) {
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	queue, err := mq.NewFromConfig(ctx, cfg.MQ)
	if err != nil {
		t.Fatalf("connect mq: %v", err)
	}
	defer queue.Close()

	memberName := fmt.Sprintf("editor_%d", time.Now().UnixNano())
	member := registerUser(t, memberName, "testpass123!")
	token := login(t, memberName, "testpass123!")

	doJSON(t, http.MethodPatch, fmt.Sprintf("/users/%d", member.ID), token, map[string]any{
		"role": "yllapitaja",
	}, http.StatusForbidden, nil)

	var updated types.User
	doJSON(t, http.MethodPatch, fmt.Sprintf("/users/%d", member.ID), token, map[string]any{
		"phone": "0501234567",
		"role":  "kayttaja",
	}, http.StatusOK, &updated)
	if updated.Phone != "0501234567" {
		t.Fatalf("expected phone to be updated, got %q", updated.Phone)
	}

	tailCtx, stopTail := context.WithCancel(ctx)
	defer stopTail()

	found := make(chan types.UserEvent, 1)
	events := mq.NewUserEvents(queue, cfg.MQ.EventChannel)
	go func() {
		_ = events.Tail(tailCtx, func(_ context.Context, event types.UserEvent) error {
			if event.UserID == member.ID && event.Type == types.UserEventUpdated {
				select {
				case found <- event:
				default:
				}
			}
			return nil
		})
	}()

	select {
	case event := <-found:
		if strings.Join(event.Fields, ",") != "phone" {
			t.Fatalf("unexpected event fields %v", event.Fields)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for user.updated event")
	}
}

func registerUser(t *testing.T, username, password string) types.User {
	t.Helper()
	var user types.User
	doJSON(t, http.MethodPost, "/users", "", map[string]string{
		"username":  username,
		"name":      "Test " + username,
		"email":     username + "@example.com",
		"password1": password,
		"password2": password,
	}, http.StatusCreated, &user)
	if user.ID == 0 {
		t.Fatal("expected user id to be set")
	}
	return user
}

func login(t *testing.T, username, password string) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	doJSON(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	}, http.StatusOK, &resp)
	if resp.Token == "" {
		t.Fatal("missing token in login response")
	}
	return resp.Token
}

func promoteUser(username string, role types.Role) error {
	conn, err := openDB()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = conn.ExecContext(ctx, "UPDATE users SET role = $1, updated_at = NOW() WHERE username = $2", role, username)
	return err
}

func doJSON(t *testing.T, method, path, token string, body any, wantStatus int, out any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, path, wantStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
}
