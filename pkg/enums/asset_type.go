package enums

import "fmt"

// AssetType mirrors product_type on assets. Values are stored as displayed.
type AssetType string

const (
	AssetTypeReturnable    AssetType = "Returnable"
	AssetTypeNonReturnable AssetType = "Non-returnable"
)

var validAssetTypes = []AssetType{AssetTypeReturnable, AssetTypeNonReturnable}

func (a AssetType) String() string {
	return string(a)
}

func (a AssetType) IsValid() bool {
	return oneOf(a, validAssetTypes)
}

func ParseAssetType(value string) (AssetType, error) {
	return parse("asset type", value, validAssetTypes)
}

// StockFilter narrows asset listings by remaining quantity.
type StockFilter string

const (
	StockAvailable StockFilter = "available"
	StockOut       StockFilter = "out"
)

func ParseStockFilter(value string) (StockFilter, error) {
	switch StockFilter(value) {
	case StockAvailable, StockOut:
		return StockFilter(value), nil
	}
	return "", fmt.Errorf("invalid stock filter %q", value)
}
