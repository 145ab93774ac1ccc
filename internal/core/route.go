package core

import "sort"

// RouteKind 是閘道對外開放的路由種類（封閉集合）
type RouteKind int

const (
	RouteUnknown RouteKind = iota
	RouteReports
	RouteAnalytics
	RouteTax
	RouteTransactions
	RouteForecasts
	RouteChat

	routeKindCount
)

// RouteSpec 描述單一路由的靜態設定
type RouteSpec struct {
	Kind    RouteKind
	Name    string
	Path    string
	Credits int
	// 轉發前 body/query 必須存在的欄位
	RequiredFields []string
}

// routeSpecs 以 RouteKind 為索引；新增 RouteKind 時必須同步補上（見 route_test.go）
var routeSpecs = [routeKindCount]RouteSpec{
	RouteReports:      {Kind: RouteReports, Name: "reports", Path: "/reports", Credits: 2, RequiredFields: []string{"report_type"}},
	RouteAnalytics:    {Kind: RouteAnalytics, Name: "analytics", Path: "/analytics", Credits: 2, RequiredFields: []string{"metric"}},
	RouteTax:          {Kind: RouteTax, Name: "tax", Path: "/tax", Credits: 3, RequiredFields: []string{"tax_year"}},
	RouteTransactions: {Kind: RouteTransactions, Name: "transactions", Path: "/transactions", Credits: 1},
	RouteForecasts:    {Kind: RouteForecasts, Name: "forecasts", Path: "/forecasts", Credits: 5, RequiredFields: []string{"horizon_months"}},
	RouteChat:         {Kind: RouteChat, Name: "chat", Path: "/chat", Credits: 10, RequiredFields: []string{"message"}},
}

var routeByPath = func() map[string]RouteKind {
	m := make(map[string]RouteKind, len(routeSpecs))
	for _, spec := range routeSpecs {
		if spec.Kind == RouteUnknown {
			continue
		}
		m[spec.Path] = spec.Kind
	}
	return m
}()

// AllRouteKinds 回傳所有有效的 RouteKind（不含 RouteUnknown）
func AllRouteKinds() []RouteKind {
	kinds := make([]RouteKind, 0, routeKindCount-1)
	for k := RouteUnknown + 1; k < routeKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ResolveRoute 將公開路徑對應到 RouteKind；找不到回傳 false
func ResolveRoute(path string) (RouteKind, bool) {
	kind, ok := routeByPath[path]
	return kind, ok
}

// ValidRoutePaths 回傳排序後的有效路徑清單（404 時提供給呼叫端）
func ValidRoutePaths() []string {
	paths := make([]string, 0, len(routeByPath))
	for p := range routeByPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (k RouteKind) Valid() bool {
	return k > RouteUnknown && k < routeKindCount
}

func (k RouteKind) Spec() RouteSpec {
	if !k.Valid() {
		return RouteSpec{Kind: RouteUnknown, Name: "unknown"}
	}
	return routeSpecs[k]
}

func (k RouteKind) String() string {
	return k.Spec().Name
}
