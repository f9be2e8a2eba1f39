package algorithm

import "github.com/wyfcoding/beats/xerrors"

// 以下错误均为 xerrors 哨兵，调用方用 errors.Is 判断。
var (
	// ErrInvalidRange 区间越界或左右端点颠倒。
	ErrInvalidRange = xerrors.ErrInvalidRange
	// ErrMagnitudeExceeded 绝对值将超出上限。
	ErrMagnitudeExceeded = xerrors.ErrMagnitudeExceeded
	// ErrMagnitudeLimit 上限本身过大。
	ErrMagnitudeLimit = xerrors.ErrMagnitudeLimit
	// ErrTreeTooLarge 序列过长。
	ErrTreeTooLarge = xerrors.ErrTreeTooLarge
)
