package uploads

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// FirebaseStore writes media to a Firebase Storage bucket and hands back a
// time-limited signed GET URL.
type FirebaseStore struct {
	bucket    *storage.BucketHandle
	urlExpiry time.Duration
}

// NewFirebaseStore builds the store from credentials in the environment.
// FIREBASE_CREDENTIALS_JSON takes precedence over FIREBASE_CREDENTIALS_FILE;
// with neither set, application default credentials are used.
func NewFirebaseStore(ctx context.Context, bucketName string, urlExpiry time.Duration) (*FirebaseStore, error) {
	if bucketName == "" {
		return nil, ErrInvalidArgument
	}

	var opts []option.ClientOption
	if credJSON := os.Getenv("FIREBASE_CREDENTIALS_JSON"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("FIREBASE_CREDENTIALS_FILE"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucketName}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase storage: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("storage bucket: %w", err)
	}

	if urlExpiry <= 0 {
		urlExpiry = 24 * time.Hour
	}
	return &FirebaseStore{bucket: bucket, urlExpiry: urlExpiry}, nil
}

func (s *FirebaseStore) Upload(ctx context.Context, data []byte, contentType, path string) (string, error) {
	if len(data) == 0 || path == "" {
		return "", ErrInvalidArgument
	}

	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	url, err := s.bucket.SignedURL(path, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(s.urlExpiry),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return url, nil
}
