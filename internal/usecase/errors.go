package usecase

import "errors"

var (
	//400 入力不正
	ErrValidation = errors.New("validation error")
	//401 認証失敗
	ErrUnauthorized = errors.New("unauthorized")
	//403 有効な認証だが許可しない（停止アカウントなど）
	ErrForbidden = errors.New("forbidden")
	//404
	ErrNotFound = errors.New("not found")
	//409 email重複など
	ErrConflict = errors.New("conflict")
	//500 DB障害など。リトライで直る可能性がある
	ErrInternal = errors.New("internal error")
)
