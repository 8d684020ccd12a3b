package intake

import (
	"github.com/goccy/go-json"

	"github.com/samcharles93/glbkit/pkg/glb"
	"github.com/samcharles93/glbkit/pkg/scene"
)

// AssetSummary is the public view of a stored asset.
type AssetSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	CreatedAt    int64    `json:"created_at"`
	AssetVersion string   `json:"asset_version"`
	Generator    string   `json:"generator,omitempty"`
	Scenes       int      `json:"scenes"`
	Nodes        int      `json:"nodes"`
	Meshes       int      `json:"meshes"`
	Accessors    int      `json:"accessors"`
	BufferViews  int      `json:"buffer_views"`
	PayloadBytes int      `json:"payload_bytes"`
	Valid        bool     `json:"valid"`
	Layout       glb.Info `json:"layout"`
}

type CreateAssetResp struct {
	ID      string        `json:"id"`
	Issues  []scene.Issue `json:"issues"`
	Summary AssetSummary  `json:"summary"`
}

type ListAssetsResp struct {
	Object string         `json:"object"`
	Data   []AssetSummary `json:"data"`
}

type DeleteAssetResp struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// PackReq carries a descriptor and a base64 payload to be packed into a
// container.
type PackReq struct {
	Descriptor json.RawMessage `json:"descriptor"`
	Payload    []byte          `json:"payload,omitempty"`
	Validate   bool            `json:"validate,omitempty"`
}

type ValidateResp struct {
	Valid  bool          `json:"valid"`
	Issues []scene.Issue `json:"issues"`
}

// RejectedResp is returned with 422 when validation blocks a request.
type RejectedResp struct {
	Error  ErrorBody     `json:"error"`
	Issues []scene.Issue `json:"issues"`
}

type InspectResp struct {
	Layout          glb.Info      `json:"layout"`
	DescriptorBytes int           `json:"descriptor_bytes"`
	PayloadBytes    int           `json:"payload_bytes"`
	UnknownChunks   int           `json:"unknown_chunks"`
	Issues          []scene.Issue `json:"issues"`
}

func summarize(a *Asset) AssetSummary {
	doc := a.Document
	return AssetSummary{
		ID:           a.ID,
		Name:         a.Name,
		CreatedAt:    a.CreatedAt.Unix(),
		AssetVersion: doc.Asset.Version,
		Generator:    doc.Asset.Generator,
		Scenes:       len(doc.Scenes),
		Nodes:        len(doc.Nodes),
		Meshes:       len(doc.Meshes),
		Accessors:    len(doc.Accessors),
		BufferViews:  len(doc.BufferViews),
		PayloadBytes: len(a.Payload),
		Valid:        len(a.Issues) == 0,
		Layout:       a.Layout,
	}
}

// nonNil keeps empty issue lists serialised as [] rather than null.
func nonNil(issues []scene.Issue) []scene.Issue {
	if issues == nil {
		return []scene.Issue{}
	}
	return issues
}
