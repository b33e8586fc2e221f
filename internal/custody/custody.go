// Package custody holds the in-flight OAuth request token pair across the
// redirect-out/redirect-back boundary of a connect attempt. Values live for
// minutes, are scoped to the requesting browser, and are cleared explicitly
// after one use.
package custody

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// ErrNoAttempt indicates no connect attempt is in progress for this browser
// (nothing stored, or the stored pair expired).
var ErrNoAttempt = errors.New("custody: no connect attempt in progress")

// Custody stores the {requestToken, requestTokenSecret} pair between the
// connect redirect and the provider callback. Store overwrites any prior
// in-flight attempt; only one attempt per browser session is live at a time.
type Custody interface {
	Store(c *gin.Context, token, secret string) error
	Retrieve(c *gin.Context) (token, secret string, err error)
	Clear(c *gin.Context)
}
