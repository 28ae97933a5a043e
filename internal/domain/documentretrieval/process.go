package documentretrieval

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/hie/bridge/internal/domain/exchange"
	"github.com/hie/bridge/internal/platform/blobstore"
	"github.com/hie/bridge/internal/platform/soap"
)

// Processor moves retrieved document bytes into blob storage and produces
// presigned references. Raw bytes never travel past this point.
type Processor struct {
	store      blobstore.Store
	presignTTL time.Duration
	log        zerolog.Logger
}

// NewProcessor wires a processor against a blob store.
func NewProcessor(store blobstore.Store, presignTTL time.Duration, log zerolog.Logger) *Processor {
	if presignTTL <= 0 {
		presignTTL = 10 * time.Minute
	}
	return &Processor{store: store, presignTTL: presignTTL, log: log}
}

// Process stores each document from the response exactly once (documents
// already present under their key are not rewritten) and returns normalized
// references carrying a presigned URL instead of content.
func (p *Processor) Process(ctx context.Context, req *exchange.DocumentRetrievalRequest, body *RetrieveResponseBody, parts *soap.MessageParts) ([]exchange.DocumentReference, error) {
	refs := make([]exchange.DocumentReference, 0, len(body.DocumentResponses))
	for _, dr := range body.DocumentResponses {
		data, err := dr.Bytes(parts)
		if err != nil {
			return nil, fmt.Errorf("resolving document %s: %w", dr.DocumentUniqueID, err)
		}

		contentType := dr.MimeType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		key := blobstore.DocumentKey(req.CxID, req.PatientID, dr.DocumentUniqueID, contentType)

		exists, err := p.store.Exists(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("checking blob %s: %w", key, err)
		}
		if !exists {
			if err := p.store.Put(ctx, key, data, contentType); err != nil {
				return nil, fmt.Errorf("storing blob %s: %w", key, err)
			}
		} else {
			p.log.Debug().Str("key", key).Msg("document already stored, skipping write")
		}

		url, err := p.store.Presign(ctx, key, p.presignTTL)
		if err != nil {
			return nil, fmt.Errorf("presigning blob %s: %w", key, err)
		}

		refs = append(refs, exchange.DocumentReference{
			HomeCommunityID:    dr.Home(),
			RepositoryUniqueID: dr.RepositoryUniqueID,
			DocumentUniqueID:   dr.DocumentUniqueID,
			ContentType:        contentType,
			Size:               int64(len(data)),
			URL:                url,
			FileName:           path.Base(key),
			FileLocation:       key,
			IsNew:              !exists,
		})
	}
	return refs, nil
}
