// Package directory maintains the catalog of external exchange gateways the
// bridge can fan out to: which communities exist, their OIDs, and the
// endpoint URL for each transaction.
package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/hie/bridge/internal/domain/exchange"
)

// Entry is one external gateway in the directory.
type Entry struct {
	ID              uuid.UUID `json:"id"`
	OID             string    `json:"oid"`
	Name            string    `json:"name"`
	ManagingOrg     string    `json:"managingOrg,omitempty"`
	HomeCommunityID string    `json:"homeCommunityId"`
	XCPDURL         string    `json:"xcpdUrl,omitempty"`
	XCAQueryURL     string    `json:"xcaQueryUrl,omitempty"`
	XCARetrieveURL  string    `json:"xcaRetrieveUrl,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Gateway converts the entry to the dispatch model for one transaction.
func (e *Entry) Gateway(tx exchange.TransactionType) exchange.Gateway {
	url := ""
	switch tx {
	case exchange.TransactionPatientDiscovery:
		url = e.XCPDURL
	case exchange.TransactionDocumentQuery:
		url = e.XCAQueryURL
	case exchange.TransactionDocumentRetrieval:
		url = e.XCARetrieveURL
	}
	return exchange.Gateway{
		ID:              e.ID.String(),
		OID:             e.OID,
		URL:             url,
		HomeCommunityID: e.HomeCommunityID,
	}
}
