package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helixir/integrations-worker/internal/domain"
	"github.com/helixir/integrations-worker/internal/observability"
)

type mockPutter struct {
	mock.Mock
}

func (m *mockPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func TestUploader_Upload(t *testing.T) {
	putter := new(mockPutter)
	putter.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "docs" &&
			aws.ToString(in.Key) == "pdfs/report.pdf" &&
			aws.ToString(in.ContentType) == "application/pdf" &&
			aws.ToInt64(in.ContentLength) == 4
	})).Return(&s3.PutObjectOutput{}, nil)

	metrics := observability.NewMetrics("storage_upload_test")
	u := NewWithClient(putter, "docs", "", metrics)

	up, err := u.Upload(context.Background(), "/pdfs/report.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, &domain.PDFUpload{
		Bucket:    "docs",
		Key:       "pdfs/report.pdf",
		URL:       "https://docs.s3.amazonaws.com/pdfs/report.pdf",
		SizeBytes: 4,
	}, up)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ObjectsUploaded.WithLabelValues("pdfs")), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(metrics.UploadBytes), 0)
	putter.AssertExpectations(t)
}

func TestUploader_UploadError(t *testing.T) {
	putter := new(mockPutter)
	putter.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	u := NewWithClient(putter, "docs", "https://cdn.example.com/", nil)
	_, err := u.Upload(context.Background(), "resumes/a.pdf", []byte("x"), "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://docs/resumes/a.pdf")
	assert.Contains(t, err.Error(), "access denied")
}

func TestUploader_RejectsBadKeys(t *testing.T) {
	u := NewWithClient(new(mockPutter), "docs", "", nil)
	for _, key := range []string{"", "/", "pdfs/../secret.pdf", "pdfs//a.pdf"} {
		_, err := u.Upload(context.Background(), key, nil, "application/pdf")
		assert.ErrorIs(t, err, domain.ErrInvalidInput, key)
	}
}

func TestUploader_URL(t *testing.T) {
	u := NewWithClient(new(mockPutter), "docs", "https://cdn.example.com/", nil)
	assert.Equal(t, "https://cdn.example.com/pdfs/my%20file.pdf", u.URL("pdfs/my file.pdf"))
	assert.Equal(t, "docs", u.Bucket())
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "pdfs/report.pdf", ObjectKey("pdfs", "report", ".pdf"))
	assert.Equal(t, "pdfs/report.pdf", ObjectKey("pdfs", "report.pdf", ".pdf"))
	assert.Equal(t, "resumes/passwd.pdf", ObjectKey("resumes", "../../etc/passwd", ".pdf"))
	assert.Equal(t, "pdfs/untitled.pdf", ObjectKey("pdfs", "", ".pdf"))
	assert.Equal(t, "pdfs/untitled.pdf", ObjectKey("pdfs", ".", ".pdf"))
	assert.Equal(t, "pdfs/untitled.pdf", ObjectKey("pdfs", "..", ".pdf"))
	assert.Equal(t, "pdfs/untitled.pdf", ObjectKey("pdfs", ".pdf", ".pdf"))
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	assert.ErrorIs(t, err, ErrMissingBucket)
}

func TestNew_CustomEndpoint(t *testing.T) {
	var (
		mu          sync.Mutex
		gotMethod   string
		gotPath     string
		gotAuth     string
		gotBodySize int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotMethod, gotPath, gotAuth, gotBodySize = r.Method, r.URL.Path, r.Header.Get("Authorization"), len(body)
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	u, err := New(context.Background(), Config{
		Endpoint:        server.URL,
		Bucket:          "docs",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	}, nil)
	require.NoError(t, err)

	up, err := u.Upload(context.Background(), "pdfs/page.pdf", []byte("%PDF-1.7"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdfs/page.pdf", up.Key)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/docs/pdfs/page.pdf", gotPath)
	assert.Contains(t, gotAuth, "AKIDEXAMPLE")
	assert.Positive(t, gotBodySize)
}
