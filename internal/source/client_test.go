package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"pipescan/internal/model"
	"pipescan/pkg/response"
)

func TestHTTPFeedClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("FetchEventsAdvancesCursor", func(t *testing.T) {
		var gotCursors []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/events/wait" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			gotCursors = append(gotCursors, r.URL.Query().Get("cursor"))

			c, _ := gin.CreateTestContext(w)
			c.Request = r
			response.OK(c, waitPayload{
				NewEvents: []model.RawEvent{
					{ID: "ev-1", EventType: "build.complete"},
					{ID: "ev-2", EventType: "build.complete"},
				},
				Cursor: 2,
			})
		}))
		defer srv.Close()

		client := NewHTTPFeedClient(&mockLogger{}, srv.URL, 5*time.Second)

		events, err := client.FetchEvents(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(events) != 2 || events[0].ID != "ev-1" || events[1].ID != "ev-2" {
			t.Errorf("unexpected events: %+v", events)
		}

		if _, err := client.FetchEvents(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(gotCursors) != 2 || gotCursors[0] != "0" || gotCursors[1] != "2" {
			t.Errorf("unexpected cursors: %v", gotCursors)
		}
	})

	t.Run("FetchEventsServerError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewHTTPFeedClient(&mockLogger{}, srv.URL, 5*time.Second)
		if _, err := client.FetchEvents(context.Background()); err == nil {
			t.Error("expected error on 500 response")
		}
	})

	t.Run("Ping", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/ping" {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := NewHTTPFeedClient(&mockLogger{}, srv.URL, 5*time.Second)
		if err := client.Ping(context.Background()); err != nil {
			t.Errorf("unexpected ping error: %v", err)
		}

		client.SetBaseURL(srv.URL + "/missing")
		if err := client.Ping(context.Background()); err == nil {
			t.Error("expected ping error on 404")
		}
	})
}
