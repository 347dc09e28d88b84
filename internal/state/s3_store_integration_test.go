package state

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
)

// startLocalstack spins up a LocalStack container and returns an S3 client
// pointed at it
func startLocalstack(t *testing.T) *s3.Client {
	t.Helper()

	ctx := context.Background()
	container, err := localstack.Run(ctx, "localstack/localstack:3.4")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(container))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4566/tcp")
	require.NoError(t, err)
	endpoint := fmt.Sprintf("http://%s:%s", host, port.Port())

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	require.NoError(t, err)

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
}

func TestS3SnapshotRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}
	t.Parallel()

	ctx := context.Background()
	client := startLocalstack(t)

	const bucket = "overcast-snapshots"
	_, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	store := NewS3SnapshotStoreWithClient(client, bucket, "prod")
	infra := snapshotFixture()

	require.NoError(t, store.SaveInfrastructure(ctx, infra))

	got, err := store.LoadInfrastructure(ctx, infra.ID)
	require.NoError(t, err)
	assert.Equal(t, infra.Name, got.Name)
	assert.Equal(t, infra.Resources[0].ProviderID, got.Resources[0].ProviderID)
	assert.True(t, got.EstimatedMonthlyCost.Equal(infra.EstimatedMonthlyCost))

	ids, err := store.ListInfrastructureIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{infra.ID}, ids)

	_, err = store.LoadInfrastructure(ctx, "infra-missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}
