package constants

// ItemStatus is the per-document outcome of an ingestion batch.
type ItemStatus string

// Stable values (rendered in audit lines and the gRPC response).
const (
	ItemInserted           ItemStatus = "INSERTED"             // record committed
	ItemInsertedNullAmount ItemStatus = "INSERTED_NULL_AMOUNT" // committed, amount unreadable
	ItemExtractionFailed   ItemStatus = "EXTRACTION_FAILED"    // no text in the document
	ItemMissingIdentifier  ItemStatus = "MISSING_IDENTIFIER"   // no assessment number parsed
	ItemDuplicate          ItemStatus = "DUPLICATE"            // assessment number already stored
	ItemStoreError         ItemStatus = "STORE_ERROR"          // insert failed for this item only
)

// Inserted reports whether the status counts towards the inserted total.
func (s ItemStatus) Inserted() bool {
	return s == ItemInserted || s == ItemInsertedNullAmount
}

// Marker is the audit-log prefix for the status. Every status has its own.
func (s ItemStatus) Marker() string {
	switch s {
	case ItemInserted:
		return "[OK]"
	case ItemInsertedNullAmount:
		return "[OK~]"
	case ItemExtractionFailed:
		return "[NOTEXT]"
	case ItemMissingIdentifier:
		return "[NOID]"
	case ItemDuplicate:
		return "[DUP]"
	case ItemStoreError:
		return "[ERR]"
	default:
		return "[?]"
	}
}
