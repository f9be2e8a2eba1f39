package xerrors

var (
	// ErrInvalidInput 输入格式错误。
	ErrInvalidInput = New(ErrInvalidArg, 400002, "invalid input", "check your input parameters", nil)
	// ErrInvalidRange 区间越界或左右端点颠倒。
	ErrInvalidRange = New(ErrInvalidArg, 400101, "invalid range", "require 0 <= l <= r <= n", nil)
	// ErrMagnitudeExceeded 元素或历史最大值的绝对值将超过配置上限。
	ErrMagnitudeExceeded = New(ErrInvalidArg, 400102, "magnitude exceeded", "value would leave the configured magnitude envelope", nil)
	// ErrMagnitudeLimit 配置的绝对值上限无法保证 int64 聚合不溢出。
	ErrMagnitudeLimit = New(ErrInvalidArg, 400103, "magnitude limit too large", "max magnitude times 4*padded size must fit in int64", nil)
	// ErrTreeTooLarge 序列长度超过上限。
	ErrTreeTooLarge = New(ErrLimitExceeded, 429101, "tree too large", "sequence length exceeds the configured maximum", nil)
	// ErrTooManyTrees 托管的树数量已达上限。
	ErrTooManyTrees = New(ErrLimitExceeded, 429102, "too many trees", "store has reached its tree limit", nil)
	// ErrTreeNotFound 指定名称的树不存在。
	ErrTreeNotFound = New(ErrNotFound, 404101, "tree not found", "no tree registered under this name", nil)
	// ErrTreeExists 指定名称的树已存在。
	ErrTreeExists = New(ErrAlreadyExists, 409101, "tree already exists", "delete the existing tree first", nil)
	// ErrVerifyMismatch 差分校验发现结果不一致。
	ErrVerifyMismatch = New(ErrInternal, 500101, "verify mismatch", "tree answer differs from brute-force reference", nil)
)
