package requestdata

import (
	"context"
)

var requestDataKey = struct{}{}

// RequestData carries the authenticated caller through the request context.
type RequestData struct {
	TokenString string
	UserID      string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}

// UserID returns the authenticated user or "" when the context carries none.
func UserID(ctx context.Context) string {
	if rd := GetRequestData(ctx); rd != nil {
		return rd.UserID
	}
	return ""
}
