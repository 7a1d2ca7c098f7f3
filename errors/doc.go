/*
Package errors provides semantic error types for the tablestore library.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound        = errors.New("entity not found")
	    ErrAlreadyExists   = errors.New("entity already exists")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrConditionFailed = errors.New("condition check failed")
	    ErrInvalidToken    = errors.New("invalid page token")
	)

Store rejections:

Every backend reports rejections as *StorageError carrying an HTTP-like status code
(404 Not Found, 409 Conflict, 412 Precondition Failed, 400 Bad Request). The
if-exists repository operations rely on IsStoreNotFound, which prefers the status
code and falls back to an exact match on the "Not Found" message:

	err := table.Replace(ctx, item)
	if errors.IsStoreNotFound(err) {
	    // the entity vanished; if-exists variants treat this as a no-op
	}

Caller-contract violations (nil entity, empty table name, empty ETag on replace)
are reported as *ValidationError before any store call and match ErrInvalidInput.
*/
package errors
