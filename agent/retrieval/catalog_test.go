package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obpCatalog() *Catalog {
	return NewCatalog([]Document{
		{
			OperationID: "getAccounts",
			Method:      "GET",
			Path:        "/obp/v5.1.0/my/accounts",
			Content:     "Returns the list of accounts held by the current user.",
		},
		{
			OperationID: "getTransactions",
			Method:      "GET",
			Path:        "/obp/v5.1.0/my/accounts/ACCOUNT_ID/transactions",
			Content:     "Returns transactions for an account.",
		},
		{
			OperationID: "createCustomer",
			Method:      "POST",
			Path:        "/obp/v5.1.0/banks/BANK_ID/customers",
			Content:     "Creates a new customer at the bank.",
		},
	})
}

func TestCatalogRetrieve(t *testing.T) {
	c := obpCatalog()

	docs, err := c.Retrieve(context.Background(), "list my accounts", 8)
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, "getAccounts", docs[0].OperationID)
}

func TestCatalogRetrieveRespectsLimit(t *testing.T) {
	c := obpCatalog()

	docs, err := c.Retrieve(context.Background(), "accounts transactions customer", 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestCatalogRetrieveNoMatch(t *testing.T) {
	c := obpCatalog()

	docs, err := c.Retrieve(context.Background(), "weather forecast", 8)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCatalogRetrieveEmptyQuery(t *testing.T) {
	c := obpCatalog()

	docs, err := c.Retrieve(context.Background(), "", 8)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCatalogRetrieveCancelledContext(t *testing.T) {
	c := obpCatalog()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Retrieve(ctx, "accounts", 8)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCatalogAdd(t *testing.T) {
	c := NewCatalog(nil)
	assert.Equal(t, 0, c.Len())

	c.Add(Document{OperationID: "getBanks", Method: "GET", Path: "/obp/v5.1.0/banks", Content: "Lists banks."})
	assert.Equal(t, 1, c.Len())

	docs, err := c.Retrieve(context.Background(), "which banks exist", 8)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "getBanks", docs[0].OperationID)
}
