package targets

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/models"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/providers/aws/common"
	"github.com/pankaj-dahiya-devops/auto-start-stop/internal/stack"
)

// HeadCodeArtifact checks that the function code object is readable from
// the deployment region. HeadObject responses carry no error body, so the
// outcome is classified by HTTP status.
func HeadCodeArtifact(ctx context.Context, client common.S3Client, code stack.Code) (*models.CodeArtifact, error) {
	art := &models.CodeArtifact{Bucket: code.Bucket, Key: code.Key}

	out, err := client.HeadObject(ctx, &s3svc.HeadObjectInput{
		Bucket: aws.String(code.Bucket),
		Key:    aws.String(code.Key),
	})
	if err == nil {
		art.Found = true
		art.Size = aws.ToInt64(out.ContentLength)
		art.LastModified = aws.ToTime(out.LastModified)
		return art, nil
	}

	switch httpStatus(err) {
	case http.StatusNotFound:
		art.Reason = "not found"
		return art, nil
	case http.StatusMovedPermanently:
		art.Reason = "bucket is in another region"
		return art, nil
	}
	if common.IsAPIError(err, "NotFound", "NoSuchKey", "NoSuchBucket") {
		art.Reason = "not found"
		return art, nil
	}
	return nil, fmt.Errorf("HeadObject %s: %w", code.URI(), err)
}

func httpStatus(err error) int {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
