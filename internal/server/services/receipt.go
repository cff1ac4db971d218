package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dpetrovs/finledger/internal/common"
	"github.com/dpetrovs/finledger/internal/logging"
	sc "github.com/dpetrovs/finledger/internal/server/config"
	"github.com/dpetrovs/finledger/internal/server/models"
	"github.com/dpetrovs/finledger/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ReceiptService attaches receipt images to transactions. Content moves
// between the client and S3-compatible object storage through presigned
// URLs; this service only stores the metadata.
type ReceiptService struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	accounts *AccountService
	config   *sc.Config
	logger   logging.Logger
}

func NewReceiptService(db *sql.DB, repos repomanager.RepositoryManager, accounts *AccountService, config *sc.Config, logger logging.Logger) *ReceiptService {
	return &ReceiptService{db: db, repos: repos, accounts: accounts, config: config, logger: logger}
}

func randomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("receipts/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ReceiptService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// RequestUpload verifies the transaction belongs to the caller's account,
// records pending receipt metadata and returns a presigned PUT URL the
// client uploads the image to. Re-requesting replaces the previous key.
func (s *ReceiptService) RequestUpload(ctx context.Context, userID, transactionID string) (string, error) {
	if err := validateID(transactionID); err != nil {
		return "", err
	}

	account, err := s.accounts.Resolve(ctx, userID)
	if err != nil {
		return "", err
	}

	if _, err := s.repos.Transactions(s.db).GetByID(ctx, transactionID, account.ID); err != nil {
		return "", err
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	key := randomStorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	receipt := &models.Receipt{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		AccountID:     account.ID,
		StorageKey:    key,
		UploadStatus:  models.ReceiptPending,
	}
	if err := s.repos.Receipts(s.db).CreateOrReplace(ctx, receipt); err != nil {
		return "", fmt.Errorf("error recording receipt: %w", err)
	}

	return req.URL, nil
}

// MarkUploaded flips the receipt to uploaded once the client confirms the
// PUT succeeded.
func (s *ReceiptService) MarkUploaded(ctx context.Context, userID, transactionID string) error {
	if err := validateID(transactionID); err != nil {
		return err
	}

	account, err := s.accounts.Resolve(ctx, userID)
	if err != nil {
		return err
	}

	return s.repos.Receipts(s.db).MarkUploaded(ctx, transactionID, account.ID)
}

// DownloadURL returns a presigned GET URL for an uploaded receipt.
func (s *ReceiptService) DownloadURL(ctx context.Context, userID, transactionID string) (string, error) {
	if err := validateID(transactionID); err != nil {
		return "", err
	}

	account, err := s.accounts.Resolve(ctx, userID)
	if err != nil {
		return "", err
	}

	receipt, err := s.repos.Receipts(s.db).GetByTransactionID(ctx, transactionID, account.ID)
	if err != nil {
		return "", err
	}
	if receipt.UploadStatus != models.ReceiptUploaded {
		return "", common.ErrorNotFound
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &receipt.StorageKey,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
