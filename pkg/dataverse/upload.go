package dataverse

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// blockSize is the fixed chunk size for file-block uploads (4 MiB).
const blockSize = 4 * 1024 * 1024

type initUploadRequest struct {
	Target            map[string]any `json:"Target"`
	FileAttributeName string         `json:"FileAttributeName"`
	FileName          string         `json:"FileName"`
}

type initUploadResponse struct {
	FileContinuationToken string `json:"FileContinuationToken"`
}

type uploadBlockRequest struct {
	BlockID               string `json:"BlockId"`
	BlockData             []byte `json:"BlockData"`
	FileContinuationToken string `json:"FileContinuationToken"`
}

type commitUploadRequest struct {
	FileContinuationToken string   `json:"FileContinuationToken"`
	FileName              string   `json:"FileName"`
	MimeType              string   `json:"MimeType"`
	BlockList             []string `json:"BlockList"`
}

// UploadFile transfers data into the file column attribute of the given
// record using the initialize / upload-block / commit protocol. Blocks are
// sent sequentially in original order; the commit's block list preserves that
// order so the CRM reassembles the exact byte stream. A nil or empty payload
// is a no-op.
func (c *apiClient) UploadFile(ctx context.Context, entityName, recordID, attribute string, data []byte, fileName string) error {
	if len(data) == 0 {
		return nil
	}

	initReq := initUploadRequest{
		Target: map[string]any{
			"@odata.type":     "Microsoft.Dynamics.CRM." + entityName,
			entityName + "id": recordID,
		},
		FileAttributeName: attribute,
		FileName:          fileName,
	}
	var initResp initUploadResponse
	if err := c.Execute(ctx, "InitializeFileBlocksUpload", initReq, &initResp); err != nil {
		return eris.Wrap(err, fmt.Sprintf("dataverse: initialize upload %s/%s", entityName, attribute))
	}

	var blockList []string
	for offset := 0; offset < len(data); offset += blockSize {
		end := min(offset+blockSize, len(data))

		blockID := base64.StdEncoding.EncodeToString([]byte(uuid.NewString()))
		blockList = append(blockList, blockID)

		block := uploadBlockRequest{
			BlockID:               blockID,
			BlockData:             data[offset:end],
			FileContinuationToken: initResp.FileContinuationToken,
		}
		if err := c.Execute(ctx, "UploadBlock", block, nil); err != nil {
			return eris.Wrap(err, fmt.Sprintf("dataverse: upload block %d of %s", len(blockList), fileName))
		}
	}

	commit := commitUploadRequest{
		FileContinuationToken: initResp.FileContinuationToken,
		FileName:              fileName,
		MimeType:              mimeType(fileName),
		BlockList:             blockList,
	}
	if err := c.Execute(ctx, "CommitFileBlocksUpload", commit, nil); err != nil {
		return eris.Wrap(err, fmt.Sprintf("dataverse: commit upload %s", fileName))
	}

	zap.L().Debug("file uploaded",
		zap.String("entity", entityName),
		zap.String("attribute", attribute),
		zap.String("file", fileName),
		zap.Int("blocks", len(blockList)),
	)
	return nil
}

// mimeType derives the MIME type from the filename extension.
func mimeType(fileName string) string {
	if t := mime.TypeByExtension(filepath.Ext(fileName)); t != "" {
		return t
	}
	return "application/octet-stream"
}
