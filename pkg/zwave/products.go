package zwave

// ConfigParam describes one CONFIGURATION command class parameter of a
// known product.
type ConfigParam struct {
	Index   uint8
	Label   string
	Help    string
	Units   string
	Type    ValueType // Byte, Short or Int
	Min     int32
	Max     int32
	Default int32
}

// Size returns the wire width of the parameter.
func (p ConfigParam) Size() int {
	switch p.Type {
	case ValueTypeShort:
		return 2
	case ValueTypeInt:
		return 4
	}
	return 1
}

// Product is an entry of the built-in device table.
type Product struct {
	ManufacturerID uint16
	ProductType    uint16
	ProductID      uint16
	Name           string
	Params         []ConfigParam
}

var manufacturers = map[uint16]string{
	0x0000: "Sigma Designs",
	0x0086: "Aeotec",
	0x010F: "Fibargroup",
	0x0115: "Z-Wave.Me",
}

var products = []Product{
	{
		ManufacturerID: 0x0086, ProductType: 0x0003, ProductID: 0x0060,
		Name: "ZW096 Smart Switch 6",
		Params: []ConfigParam{
			{Index: 80, Label: "Notification on Status Change", Type: ValueTypeByte, Min: 0, Max: 2},
			{Index: 91, Label: "Minimum Change to Report (Watt)", Units: "W", Type: ValueTypeShort, Min: 0, Max: 32000, Default: 25},
			{Index: 111, Label: "Group 1 Report Interval", Units: "s", Type: ValueTypeInt, Min: 1, Max: 2147483647, Default: 3},
		},
	},
	{
		ManufacturerID: 0x010F, ProductType: 0x0102, ProductID: 0x1000,
		Name: "FGD212 Dimmer 2",
		Params: []ConfigParam{
			{Index: 1, Label: "Minimum brightness level", Type: ValueTypeByte, Min: 1, Max: 98, Default: 1},
			{Index: 2, Label: "Maximum brightness level", Type: ValueTypeByte, Min: 2, Max: 99, Default: 99},
		},
	},
	{
		ManufacturerID: 0x0086, ProductType: 0x0002, ProductID: 0x0064,
		Name: "ZW100 MultiSensor 6",
		Params: []ConfigParam{
			{Index: 3, Label: "PIR reset time", Units: "s", Type: ValueTypeShort, Min: 10, Max: 3600, Default: 240},
			{Index: 4, Label: "Motion sensor sensitivity", Type: ValueTypeByte, Min: 0, Max: 5, Default: 5},
		},
	},
}

// ManufacturerName returns the name of a manufacturer id.
func ManufacturerName(id uint16) (string, bool) {
	name, ok := manufacturers[id]
	return name, ok
}

// LookupProduct finds a product in the built-in table.
func LookupProduct(manufacturer, productType, productID uint16) (Product, bool) {
	for _, p := range products {
		if p.ManufacturerID == manufacturer && p.ProductType == productType && p.ProductID == productID {
			return p, true
		}
	}
	return Product{}, false
}
