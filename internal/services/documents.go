package services

import (
	"context"
	"regexp"
	"strings"

	"govportal/internal/auth"
	"govportal/internal/models"
	"govportal/internal/store"
	"govportal/internal/utils"

	"go.uber.org/zap"
)

var (
	cidV0 = regexp.MustCompile(`^Qm[1-9A-HJ-NP-Za-km-z]{44}$`)
	cidV1 = regexp.MustCompile(`^b[a-z2-7]{58,}$`)
)

// ValidCID reports whether hash looks like an IPFS content identifier.
func ValidCID(hash string) bool {
	return cidV0.MatchString(hash) || cidV1.MatchString(hash)
}

type DocumentInput struct {
	IPFSHash    string `json:"ipfsHash"`
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType"`
	FileSize    int64  `json:"fileSize"`
	Description string `json:"description"`
}

type DocumentRegister struct {
	stores  *store.Selector
	gateway string
	log     *zap.Logger
}

func NewDocumentRegister(stores *store.Selector, gateway string, log *zap.Logger) *DocumentRegister {
	return &DocumentRegister{stores: stores, gateway: strings.TrimSuffix(gateway, "/"), log: log}
}

func (r *DocumentRegister) Register(ctx context.Context, owner *auth.Identity, in DocumentInput) (*models.Document, error) {
	in.IPFSHash = strings.TrimSpace(in.IPFSHash)
	in.FileName = utils.PlainText(in.FileName)
	if in.IPFSHash == "" || in.FileName == "" {
		return nil, invalid("IPFS hash and file name are required")
	}
	if !ValidCID(in.IPFSHash) {
		return nil, invalid("ipfsHash is not a valid IPFS content identifier")
	}
	if in.FileSize < 0 {
		return nil, invalid("fileSize must not be negative")
	}
	if in.FileType == "" {
		in.FileType = "application/octet-stream"
	}

	primary := r.stores.Primary(ctx)
	if primary == nil {
		return nil, ErrStoreUnavailable
	}
	d := &models.Document{
		IPFSHash:    in.IPFSHash,
		FileName:    in.FileName,
		FileType:    in.FileType,
		FileSize:    in.FileSize,
		Description: utils.PlainText(in.Description),
		OwnerID:     owner.ID,
		OwnerEmail:  owner.Email,
		OwnerName:   owner.Name,
	}
	if err := primary.CreateDocument(ctx, d); err != nil {
		return nil, unavailable(r.log, "create document", err)
	}
	return d, nil
}

func (r *DocumentRegister) List(ctx context.Context, caller *auth.Identity) ([]models.Document, store.Source, error) {
	scope := caller.Scope()
	s, src := r.stores.Select(ctx)
	list, err := s.ListDocuments(ctx, scope)
	if src == store.SourceLive && (err != nil || len(list) == 0) {
		if err != nil {
			r.log.Warn("live document list failed, using fallback dataset", zap.Error(err))
		}
		list, err = r.stores.Fallback().ListDocuments(ctx, scope)
		src = store.SourceFallback
	}
	if err != nil {
		return nil, "", unavailable(r.log, "list documents", err)
	}
	return list, src, nil
}

// ContentURL resolves a document the caller may see to its gateway URL.
// Documents owned by someone else are reported as not found.
func (r *DocumentRegister) ContentURL(ctx context.Context, caller *auth.Identity, id string) (string, error) {
	s, src := r.stores.Select(ctx)
	d, err := s.FindDocument(ctx, id)
	if err != nil && src == store.SourceLive {
		d, err = r.stores.Fallback().FindDocument(ctx, id)
	}
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", unavailable(r.log, "find document", err)
	}
	if scope := caller.Scope(); scope != "" && d.OwnerID != scope {
		return "", ErrNotFound
	}
	return r.gateway + "/ipfs/" + d.IPFSHash, nil
}
