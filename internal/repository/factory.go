package repository

import (
	"github.com/numera/numera/internal/domain/document"
	"github.com/numera/numera/internal/domain/expense"
	"github.com/numera/numera/internal/domain/sequence"
	"github.com/numera/numera/internal/dynamodb"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/postgres"
	dynamoRepo "github.com/numera/numera/internal/repository/dynamo"
	postgresRepo "github.com/numera/numera/internal/repository/postgres"
)

type RepositoryType string

const (
	DynamoRepo   RepositoryType = "dynamo"
	PostgresRepo RepositoryType = "postgres"
)

func NewDocumentRepository(client dynamodb.IClient, logger *logger.Logger) document.Repository {
	return dynamoRepo.NewDocumentRepository(client, logger)
}

func NewSequenceRepository(client dynamodb.IClient, logger *logger.Logger) sequence.Repository {
	return dynamoRepo.NewSequenceRepository(client, logger)
}

func NewExpenseRepository(db *postgres.DB, logger *logger.Logger) expense.Repository {
	return postgresRepo.NewExpenseRepository(db, logger)
}
