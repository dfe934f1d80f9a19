package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// FetchRef loads the bytes behind a file reference and returns them with a
// suggested filename. Supported schemes:
//   - s3://bucket/key (AWS default credential chain)
//   - http:// and https://
//   - file://path, or a bare filesystem path
func FetchRef(ctx context.Context, ref string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(ref, "s3://"):
		return fetchS3(ctx, ref)
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		return fetchHTTP(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		return fetchLocal(strings.TrimPrefix(ref, "file://"))
	default:
		return fetchLocal(ref)
	}
}

func fetchS3(ctx context.Context, ref string) ([]byte, string, error) {
	trimmed := strings.TrimPrefix(ref, "s3://")
	slash := strings.Index(trimmed, "/")
	if slash <= 0 || slash == len(trimmed)-1 {
		return nil, "", fmt.Errorf("invalid s3 url: %s", ref)
	}
	bucket, key := trimmed[:slash], trimmed[slash+1:]

	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load aws config: %w", err)
	}
	cli := s3.NewFromConfig(cfg)

	out, err := cli.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, "", fmt.Errorf("s3 get %s: %w", ref, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read s3 object: %w", err)
	}
	log.Info().Str("bucket", bucket).Str("key", key).Int("bytes", len(data)).Msg("fetched s3 object")
	return data, path.Base(key), nil
}

func fetchHTTP(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("http %d fetching %s", resp.StatusCode, url)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, path.Base(req.URL.Path), nil
}

func fetchLocal(p string) ([]byte, string, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, "", err
	}
	return data, path.Base(p), nil
}
