package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dpetrovs/finledger/internal/common"
	sc "github.com/dpetrovs/finledger/internal/server/config"
	"github.com/dpetrovs/finledger/internal/server/models"
)

func newReceiptService(m *fakeRepoManager) *ReceiptService {
	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "admin",
		S3RootPassword: "secret",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "receipts",
	}
	accounts := NewAccountService(nil, m, nopLogger{})
	return NewReceiptService(nil, m, accounts, cfg, nopLogger{})
}

func stubPresignSeams(t *testing.T) (putURLs, getURLs *[]string) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	var puts, gets []string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		puts = append(puts, *in.Key)
		return &v4.PresignedHTTPRequest{URL: "https://s3.local/put/" + *in.Key}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gets = append(gets, *in.Key)
		return &v4.PresignedHTTPRequest{URL: "https://s3.local/get/" + *in.Key}, nil
	}
	return &puts, &gets
}

func TestRequestUpload(t *testing.T) {
	puts, _ := stubPresignSeams(t)

	m := newFakeRepoManager()
	seedAccount(m, "u1", 0)
	seedTransaction(m, 500, models.TypeExpense)
	s := newReceiptService(m)

	url, err := s.RequestUpload(context.Background(), "u1", testTransactionID)
	if err != nil {
		t.Fatalf("RequestUpload error: %v", err)
	}
	if !strings.HasPrefix(url, "https://s3.local/put/receipts/") {
		t.Fatalf("unexpected URL: %q", url)
	}
	if len(*puts) != 1 || !strings.HasPrefix((*puts)[0], "receipts/") {
		t.Fatalf("unexpected presigned keys: %v", *puts)
	}

	receipt := m.r.byTransaction[testTransactionID]
	if receipt == nil || receipt.UploadStatus != models.ReceiptPending {
		t.Fatalf("pending receipt not recorded: %+v", receipt)
	}
	if receipt.StorageKey != (*puts)[0] {
		t.Fatalf("stored key %q differs from presigned key %q", receipt.StorageKey, (*puts)[0])
	}
}

func TestRequestUpload_ReplacesPreviousKey(t *testing.T) {
	puts, _ := stubPresignSeams(t)

	m := newFakeRepoManager()
	seedAccount(m, "u1", 0)
	seedTransaction(m, 500, models.TypeExpense)
	s := newReceiptService(m)
	ctx := context.Background()

	if _, err := s.RequestUpload(ctx, "u1", testTransactionID); err != nil {
		t.Fatalf("first RequestUpload error: %v", err)
	}
	if _, err := s.RequestUpload(ctx, "u1", testTransactionID); err != nil {
		t.Fatalf("second RequestUpload error: %v", err)
	}

	if len(*puts) != 2 {
		t.Fatalf("want 2 presigns, got %d", len(*puts))
	}
	if got := m.r.byTransaction[testTransactionID].StorageKey; got != (*puts)[1] {
		t.Fatalf("old key not replaced: %q", got)
	}
}

func TestRequestUpload_UnknownTransaction(t *testing.T) {
	stubPresignSeams(t)

	m := newFakeRepoManager()
	seedAccount(m, "u1", 0)
	s := newReceiptService(m)

	_, err := s.RequestUpload(context.Background(), "u1", testTransactionID)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestDownloadURL_RequiresUploadedStatus(t *testing.T) {
	_, gets := stubPresignSeams(t)

	m := newFakeRepoManager()
	seedAccount(m, "u1", 0)
	seedTransaction(m, 500, models.TypeExpense)
	m.r.byTransaction[testTransactionID] = &models.Receipt{
		ID:            "r1",
		TransactionID: testTransactionID,
		AccountID:     testAccountID,
		StorageKey:    "receipts/2025/6/1/key",
		UploadStatus:  models.ReceiptPending,
	}
	s := newReceiptService(m)
	ctx := context.Background()

	if _, err := s.DownloadURL(ctx, "u1", testTransactionID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("pending receipt: want ErrorNotFound, got %v", err)
	}

	if err := s.MarkUploaded(ctx, "u1", testTransactionID); err != nil {
		t.Fatalf("MarkUploaded error: %v", err)
	}

	url, err := s.DownloadURL(ctx, "u1", testTransactionID)
	if err != nil {
		t.Fatalf("DownloadURL error: %v", err)
	}
	if url != "https://s3.local/get/receipts/2025/6/1/key" {
		t.Fatalf("unexpected URL: %q", url)
	}
	if len(*gets) != 1 {
		t.Fatalf("want 1 GET presign, got %d", len(*gets))
	}
}

func TestReceiptOps_InvalidID(t *testing.T) {
	m := newFakeRepoManager()
	s := newReceiptService(m)
	ctx := context.Background()

	if _, err := s.RequestUpload(ctx, "u1", "nope"); !errors.Is(err, common.ErrorInvalidID) {
		t.Fatalf("want ErrorInvalidID, got %v", err)
	}
	if err := s.MarkUploaded(ctx, "u1", "nope"); !errors.Is(err, common.ErrorInvalidID) {
		t.Fatalf("want ErrorInvalidID, got %v", err)
	}
	if _, err := s.DownloadURL(ctx, "u1", "nope"); !errors.Is(err, common.ErrorInvalidID) {
		t.Fatalf("want ErrorInvalidID, got %v", err)
	}
}
