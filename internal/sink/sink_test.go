package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/token-features/internal/model"
)

func sampleRecord(volatility float64) model.FeatureRecord {
	change := 21.0
	holders := int64(340)
	return model.NewFeatureRecord(9, 125.5, &change, 980.25, volatility, &holders,
		model.Labels{Name: "Alpha", Symbol: "ALP", LogoURI: "https://x/alp.png"})
}

func TestFileSink_OverwritesSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_data.json")
	s := NewFileSink(path)
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "abc", sampleRecord(10)))
	require.NoError(t, s.Write(ctx, "def", sampleRecord(42)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got model.FeatureRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 42.0, got.Volatility, "second write replaces the first")
	assert.Contains(t, string(data), "\n    \"decimals\": 9", "four-space indent")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm(), "snapshot is world-readable")
}

func TestFileSink_PersistFailure(t *testing.T) {
	s := NewFileSink(filepath.Join(t.TempDir(), "missing", "dir", "out.json"))

	err := s.Write(context.Background(), "abc", sampleRecord(1))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersist))
}

func TestWebhookSink(t *testing.T) {
	var (
		gotAuth    string
		gotPayload webhookPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSink(srv.URL, "hook-key")
	require.NoError(t, s.Write(context.Background(), "abc", sampleRecord(7)))

	assert.Equal(t, "Bearer hook-key", gotAuth)
	assert.Equal(t, "abc", gotPayload.TokenID)
	assert.Equal(t, 7.0, gotPayload.Record.Volatility)
	assert.NotEmpty(t, gotPayload.ExportTime)
}

func TestWebhookSink_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewWebhookSink(srv.URL, "").Write(context.Background(), "abc", sampleRecord(1))
	assert.True(t, errors.Is(err, ErrPersist))

	err = NewWebhookSink("", "").Write(context.Background(), "abc", sampleRecord(1))
	assert.True(t, errors.Is(err, ErrPersist))
}

func TestRedisSink_UnreachableServer(t *testing.T) {
	s := NewRedisSink("127.0.0.1:1", "", 0, "test:")
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := s.Write(ctx, "abc", sampleRecord(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersist))
}

type recordingSink struct {
	name    string
	err     error
	written []string
}

func (r *recordingSink) Write(_ context.Context, tokenID string, _ model.FeatureRecord) error {
	r.written = append(r.written, tokenID)
	return r.err
}

func (r *recordingSink) Name() string { return r.name }

func TestMulti_WritesAllAndJoinsErrors(t *testing.T) {
	failing := &recordingSink{name: "a", err: persistErr("a", errors.New("disk full"))}
	ok := &recordingSink{name: "b"}

	err := Multi{failing, ok}.Write(context.Background(), "abc", sampleRecord(1))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersist))
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, []string{"abc"}, ok.written, "later sinks still run")
	assert.NoError(t, Multi{ok}.Write(context.Background(), "def", sampleRecord(1)))
}

func TestMulti_Name(t *testing.T) {
	m := Multi{&recordingSink{name: "file"}, &recordingSink{name: "redis"}}
	assert.Equal(t, "file+redis", m.Name())
	assert.Equal(t, "", Multi{}.Name())
}

type fixedSigner struct{ body []byte }

func (f *fixedSigner) Sign(body []byte) (string, error) {
	f.body = append([]byte(nil), body...)
	return "0xsig", nil
}

func (f *fixedSigner) Address() string { return "0xsigner" }

func TestWebhookSink_SignsBody(t *testing.T) {
	var (
		gotSig, gotSigner string
		gotBody           []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotSigner = r.Header.Get("X-Signer")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	signer := &fixedSigner{}
	s := NewWebhookSink(srv.URL, "").WithSigner(signer)
	require.NoError(t, s.Write(context.Background(), "abc", sampleRecord(3)))

	assert.Equal(t, "0xsig", gotSig)
	assert.Equal(t, "0xsigner", gotSigner)
	assert.Equal(t, signer.body, gotBody)
}

// trackedBody records whether the body was read to EOF before Close.
type trackedBody struct {
	r           io.Reader
	eof         bool
	closedAtEOF bool
}

func (b *trackedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF {
		b.eof = true
	}
	return n, err
}

func (b *trackedBody) Close() error {
	b.closedAtEOF = b.eof
	return nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestWebhookSink_DrainsResponseBody(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusBadGateway} {
		body := &trackedBody{r: strings.NewReader(strings.Repeat("x", 8192))}
		s := NewWebhookSink("http://hooks.invalid/features", "")
		s.httpClient.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: status, Body: body, Header: http.Header{}, Request: r}, nil
		})

		_ = s.Write(context.Background(), "abc", sampleRecord(1))
		assert.True(t, body.closedAtEOF, "status %d: body drained before close", status)
	}
}
