package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, ResolveBaseURL(""))
	assert.Equal(t, DefaultBaseURL, ResolveBaseURL("null"))
	assert.Equal(t, "http://example.com:9000", ResolveBaseURL("http://example.com:9000/"))
}

func TestPredict_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "0.73", r.URL.Query().Get("conf"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "cat.png", hdr.Filename)
		assert.Equal(t, []byte("png-bytes"), body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"count":2,"detections":[
			{"box_xyxy":[100,100,200,150],"class_id":15,"class_name":"cat","confidence":0.73},
			{"box_xyxy":[1,2,3,4],"class_id":2,"confidence":0.4}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	p, err := c.Predict(context.Background(), File{Name: "cat.png", Data: []byte("png-bytes")}, 0.7349)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Response.Count)
	require.Len(t, p.Response.Detections, 2)
	assert.Equal(t, "cat", p.Response.Detections[0].Name())
	assert.Equal(t, "2", p.Response.Detections[1].Name())
	assert.Equal(t, 150.0, p.Response.Detections[0].Box.Y2())
	assert.Contains(t, string(p.Raw), `"count":2`)
	assert.Greater(t, p.Latency, time.Duration(0))
}

func TestPredict_MissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	p, err := New(srv.URL).Predict(context.Background(), File{Data: []byte("x")}, 0.25)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Response.Count)
	assert.NotNil(t, p.Response.Detections)
	assert.Empty(t, p.Response.Detections)
}

func TestPredict_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"Please upload an image file."}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Predict(context.Background(), File{Data: []byte("x")}, 0.25)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, `{"detail":"Please upload an image file."}`, httpErr.Body)
	assert.Equal(t, `HTTP 400: {"detail":"Please upload an image file."}`, Message(err))
}

func TestPredict_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":  `<html>oops</html>`,
		"short box": `{"count":1,"detections":[{"box_xyxy":[1,2,3],"class_id":0,"confidence":0.5}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			_, err := New(srv.URL).Predict(context.Background(), File{Data: []byte("x")}, 0.25)
			assert.ErrorIs(t, err, ErrMalformedResponse)
			var mErr *MalformedResponseError
			assert.True(t, errors.As(err, &mErr))
			assert.Equal(t, MalformedMessage, Message(err))
		})
	}
}

func TestPredict_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).Predict(context.Background(), File{Data: []byte("x")}, 0.25)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, TimeoutMessage, Message(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestPredict_Canceled(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, err := New(srv.URL).Predict(ctx, File{Data: []byte("x")}, 0.25)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(errors.New("boom")))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "timeout", Outcome(ErrTimeout))
	assert.Equal(t, "canceled", Outcome(ErrCanceled))
	assert.Equal(t, "http_error", Outcome(&HTTPError{Status: 502}))
	assert.Equal(t, "malformed", Outcome(&MalformedResponseError{Err: errors.New("eof")}))
	assert.Equal(t, "error", Outcome(errors.New("dial tcp: refused")))
}
