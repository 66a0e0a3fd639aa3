package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *MockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.HeadObjectOutput), args.Error(1)
}

func TestS3Storage_Upload(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*MockS3Client)
		wantURL string
		wantErr string
	}{
		{
			name: "uploads to bucket",
			setup: func(m *MockS3Client) {
				m.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
					return *in.Bucket == "evidence" && *in.Key == "incidents/a.jpg" && *in.ContentType == "image/jpeg"
				})).Return(&s3.PutObjectOutput{}, nil)
			},
			wantURL: "https://cdn.example.com/incidents/a.jpg",
		},
		{
			name: "propagates upload error",
			setup: func(m *MockS3Client) {
				m.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))
			},
			wantErr: "upload to S3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &MockS3Client{}
			tt.setup(m)
			st := NewS3Storage(m, "evidence", "eu-central-1", "https://cdn.example.com/")

			url, err := st.Upload(context.Background(), "incidents/a.jpg", strings.NewReader("x"), "image/jpeg")
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantURL, url)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestS3Storage_Delete(t *testing.T) {
	m := &MockS3Client{}
	m.On("DeleteObject", mock.Anything, mock.MatchedBy(func(in *s3.DeleteObjectInput) bool {
		return *in.Key == "incidents/a.jpg"
	})).Return(&s3.DeleteObjectOutput{}, nil)

	st := NewS3Storage(m, "evidence", "eu-central-1", "")
	require.NoError(t, st.Delete(context.Background(), "incidents/a.jpg"))
	m.AssertExpectations(t)
}

func TestS3Storage_Exists(t *testing.T) {
	m := &MockS3Client{}
	m.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return *in.Key == "present"
	})).Return(&s3.HeadObjectOutput{}, nil)
	m.On("HeadObject", mock.Anything, mock.MatchedBy(func(in *s3.HeadObjectInput) bool {
		return *in.Key == "missing"
	})).Return(nil, &types.NotFound{})

	st := NewS3Storage(m, "evidence", "eu-central-1", "")

	ok, err := st.Exists(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.Exists(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3Storage_DefaultURL(t *testing.T) {
	st := NewS3Storage(&MockS3Client{}, "evidence", "eu-central-1", "")
	assert.Equal(t, "https://evidence.s3.eu-central-1.amazonaws.com/incidents/a.jpg", st.GetURL("incidents/a.jpg"))
}
