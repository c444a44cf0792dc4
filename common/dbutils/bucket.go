package dbutils

// Table names used by the staged sync core. These mirror the plain-state
// bucket names of the account/storage changesets and the metadata tables the
// stages and migrations check against.
const (
	PlainAccountChangeSetBucket = "PLAIN-ACS"
	PlainStorageChangeSetBucket = "PLAIN-SCS"

	AccountsHistoryBucket = "hAT"
	StorageHistoryBucket  = "hST"

	DatabaseInfoBucket = "DBINFO"
	MigrationsBucket   = "migrations"

	SyncStageProgressBucket = "SSP2"
)

// StorageModeReceiptsKey is the DatabaseInfo row that records whether
// receipts are written during execution.
const StorageModeReceiptsKey = "smReceipts"

// Migration markers checked by the legacy-receipts precondition.
const (
	MigrationReceiptsCBOREncode          = "receipts_cbor_encode"
	MigrationReceiptsStoreLogsSeparately = "receipts_store_logs_separately"
)
