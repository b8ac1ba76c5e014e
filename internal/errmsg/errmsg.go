package errmsg

import (
	"errors"
	"net/http"
)

type HTTPError struct {
	Code    int
	Message error
}

func NewHTTPError(code int, message error) HTTPError {
	return HTTPError{Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	return e.Message.Error()
}

var (
	ErrRequestPayloadEmpty = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is empty"),
	)

	ErrRequestPayloadInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("request payload is invalid"),
	)
)

var (
	ErrUserAlreadyExists = NewHTTPError(
		http.StatusConflict,
		errors.New("user already exists"),
	)

	ErrUserNotFound = NewHTTPError(
		http.StatusNotFound,
		errors.New("user not found"),
	)

	ErrUserCredentialsInvalid = NewHTTPError(
		http.StatusUnauthorized,
		errors.New("user credentials invalid"),
	)

	ErrSessionMissing = NewHTTPError(
		http.StatusUnauthorized,
		errors.New("sign in required"),
	)
)

var (
	ErrRewardStreamUnknown = NewHTTPError(
		http.StatusNotFound,
		errors.New("reward stream unknown"),
	)

	// ErrClaimNotReady is the "not yet claimable" outcome: a claim that
	// arrived before the cooldown elapsed, or lost the race to a
	// concurrent claim. Not an error condition for the user.
	ErrClaimNotReady = NewHTTPError(
		http.StatusTooManyRequests,
		errors.New("reward not yet claimable"),
	)
)

var (
	ErrPaymentNotSuccessful = NewHTTPError(
		http.StatusBadRequest,
		errors.New("payment status is not success"),
	)

	ErrPaymentAmountTooSmall = NewHTTPError(
		http.StatusBadRequest,
		errors.New("payment amount is below the minimum"),
	)

	ErrWithdrawalAmountInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("withdrawal amount must be positive"),
	)

	ErrWithdrawalCurrencyMissing = NewHTTPError(
		http.StatusBadRequest,
		errors.New("withdrawal currency is missing"),
	)

	ErrStakingPlanUnknown = NewHTTPError(
		http.StatusBadRequest,
		errors.New("staking plan unknown"),
	)

	ErrStakingAmountInvalid = NewHTTPError(
		http.StatusBadRequest,
		errors.New("staking amount must be positive"),
	)
)
