/*
Package registry is the client side of the DiplomaRegistry contract.

A RegistryClient is bound to one NetworkDeployment and is never mutated; a
network change means building a new client, usually through RegistryFactory.

# Reads

  - QueryIssuerAuthorization: isUniversityAuthorized(name)
  - QueryRecord: verifyDiploma(fingerprint, name), a miss is a view with Exists false
  - QueryRole: ADMIN_ROLE() then hasRole(role, identity)

Reads are bounded by Options.CallTimeout. A missing contract at the
configured address is reported as ErrNetwork wrapping ErrNotDeployed; any
other failure is ErrTransport.

# Writes

AuthorizeIssuer and PublishRecord validate their input, pack call data and
hand it to the SigningAgent. They return a PendingTransaction right away:

	tx, err := client.PublishRecord(ctx, fp, "MIT", "BSc")
	if err != nil {
	    return err // input error, nothing was submitted
	}
	receipt, err := tx.Wait(ctx)

A refused or failed hand-off produces a PendingTransaction that is already
TxFailed. Wait polls for the receipt and reports a revert as a Failure that
matches ErrLedgerRejection. Giving up on Wait returns ErrConfirmationTimeout
and leaves the transaction TxSubmitted.

# Authorization

Guard checks roles against the live registry. Administration runs the check
for the connected account before submitting administrator-only calls; the
contract enforces the same rule regardless.

# Testing

MockLedger is an in-memory registry that decodes real call data and mines
only when told to. MockRegistry is a testify mock of interfaces.RegistryReader.
*/
package registry
