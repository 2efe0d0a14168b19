package s3

// Artifact is a rendered copy of a ledger document, stored for download.
type Artifact struct {
	CustomerID     string       `json:"customer_id"`
	DocumentNumber string       `json:"document_number"`
	Data           []byte       `json:"data"`
	Kind           ArtifactKind `json:"kind"`
}

type ArtifactKind string

const (
	ArtifactKindPdf ArtifactKind = "pdf"
)

func NewPdfArtifact(customerID, documentNumber string, data []byte) *Artifact {
	return &Artifact{
		CustomerID:     customerID,
		DocumentNumber: documentNumber,
		Data:           data,
		Kind:           ArtifactKindPdf,
	}
}
