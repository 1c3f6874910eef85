// Package userstore manages user account records persisted in an external
// document store, split across a regular partition and a reserved
// partition for built-in accounts.
//
// Lifecycle:
//   - A Store moves through initialized, starting, started, stopping, and
//     stopped states; a failed start parks it in a terminal failed state.
//     Every operation is rejected with ErrNotStarted unless the store is
//     started, and the rejected call never contacts the backing index.
//   - The embedding orchestrator gates startup through CanStart, feeding
//     it ClusterHealth snapshots from its event stream, and keeps the
//     advisory index-existence flag fresh through HandleClusterChange.
//
// Operations:
//   - Reads (GetUser, GetUsers, VerifyPassword, GetReservedUserInfo,
//     AllReservedUserInfo) treat a missing index or document as a benign
//     empty result, except malformed reserved records which fail hard.
//   - Mutations (PutUser, ChangePassword, SetEnabled, DeleteUser) commit
//     first and then broadcast a best-effort cache invalidation; an
//     invalidation failure surfaces as CacheInvalidationError while the
//     mutation stands.
//
// Each operation exposes an asynchronous callback form and a blocking
// adapter bounded by a wait ceiling; a timed-out wait abandons the wait
// without cancelling the underlying work.
package userstore
