package entity

import "strings"

// Schema versions known to this build. New columns are appended to the end of
// an entity's column list so that older header rows are always a prefix.
const (
	EarliestSchemaVersion = 1
	CurrentSchemaVersion  = 3
)

// SchemaVersions lists every registered schema version in ascending order
var SchemaVersions = []int{1, 2, 3}

// Shared scope field names
const (
	FieldUserID  = "userId"
	FieldStoreID = "storeId"
)

func str(name string) Column   { return Column{Name: name, Kind: KindString, Since: 1} }
func num(name string) Column   { return Column{Name: name, Kind: KindFloat, Since: 1} }
func count(name string) Column { return Column{Name: name, Kind: KindInt, Since: 1} }
func flag(name string) Column  { return Column{Name: name, Kind: KindBool, Since: 1} }
func date(name string) Column  { return Column{Name: name, Kind: KindDate, Since: 1} }

func (c Column) since(v int) Column {
	c.Since = v
	return c
}

func (c Column) optional() Column {
	c.Optional = true
	return c
}

var scoped = []string{FieldUserID, FieldStoreID}

var (
	Users = &Definition{
		Name: "users", Sheet: "UsersEntity", Table: "users", Since: 1,
		Columns: []Column{
			str("userId"), str("userName"), str("email"), str("mobileNo"),
			str("token"), str("pin"), str("role"), flag("isActive"),
		},
		KeyFields: []string{"userId"},
		Protected: ProtectUser, ProtectedField: "userId",
	}

	UserAdditionalInfo = &Definition{
		Name: "user-additional-info", Sheet: "UserAdditionalInfoEntity", Table: "user_additional_info", Since: 2,
		Columns: []Column{
			str("userId").since(2), str("aadhaarNumber").since(2), str("address").since(2),
			flag("emailVerified").since(2).optional(), flag("isActive").since(2),
			date("createdAt").since(2), date("updatedAt").since(2),
		},
		KeyFields: []string{"userId"},
		Protected: ProtectUser, ProtectedField: "userId",
	}

	Store = &Definition{
		Name: "store", Sheet: "StoreEntity", Table: "store", Since: 1,
		Columns: []Column{
			str("storeId"), str("userId"), str("proprietor"), str("name"), str("email"),
			str("phone"), str("address"), str("registrationNo"), str("gstinNo"), str("panNo"),
			str("image").optional(), count("invoiceNo"), str("upiId").since(3),
		},
		KeyFields:   []string{"storeId"},
		ScopeFields: []string{FieldUserID},
		Protected:   ProtectStore, ProtectedField: "storeId",
	}

	Category = &Definition{
		Name: "categories", Sheet: "CategoryEntity", Table: "category", Since: 1,
		Columns: []Column{
			str("catId"), str("catName"), num("gsWt"), num("fnWt"), str("userId"), str("storeId"),
		},
		KeyFields:   []string{FieldUserID, FieldStoreID, "catName"},
		FoldFields:  []string{"catName"},
		ScopeFields: scoped,
	}

	SubCategory = &Definition{
		Name: "subcategories", Sheet: "SubCategoryEntity", Table: "sub_category", Since: 1,
		Columns: []Column{
			str("subCatId"), str("catId"), str("userId"), str("storeId"), str("catName"),
			str("subCatName"), count("quantity"), num("gsWt"), num("fnWt"),
		},
		KeyFields:   []string{FieldUserID, FieldStoreID, "catId", "subCatName"},
		FoldFields:  []string{"subCatName"},
		ScopeFields: scoped,
	}

	Item = &Definition{
		Name: "items", Sheet: "ItemEntity", Table: "item", Since: 1,
		Columns: []Column{
			str("itemId"), str("itemAddName"), str("catId"), str("userId"), str("storeId"),
			str("catName"), str("subCatId"), str("subCatName"), str("entryType"), count("quantity"),
			num("gsWt"), num("ntWt"), num("fnWt"), str("purity"), str("crgType"), num("crg"),
			str("othCrgDes"), num("othCrg"), num("cgst"), num("sgst"), num("igst"),
			date("addDate"), date("modifiedDate"), str("sellerFirmId"), str("purchaseOrderId"),
			str("purchaseItemId"), str("huid").since(3),
		},
		KeyFields:   []string{"itemId"},
		ScopeFields: scoped,
	}

	Customer = &Definition{
		Name: "customers", Sheet: "CustomerEntity", Table: "customer", Since: 1,
		Columns: []Column{
			str("mobileNo"), str("name"), str("address"), date("addDate"), date("lastModifiedDate"),
			count("totalItemBought"), num("totalAmount"), str("notes").optional(),
			str("userId"), str("storeId"), str("gstinPan").since(2),
		},
		KeyFields:   []string{FieldUserID, FieldStoreID, "mobileNo"},
		ScopeFields: scoped,
	}

	KhataBookPlan = &Definition{
		Name: "khata-book-plans", Sheet: "CustomerKhataBookPlanEntity", Table: "customer_khata_book_plan", Since: 1,
		Columns: []Column{
			str("planId"), str("name"), count("payMonths"), count("benefitMonths"),
			str("description").optional(), num("benefitPercentage"), str("userId"), str("storeId"),
			date("createdAt"), date("updatedAt"),
		},
		KeyFields:   []string{"planId"},
		ScopeFields: scoped,
	}

	KhataBook = &Definition{
		Name: "khata-books", Sheet: "CustomerKhataBookEntity", Table: "customer_khata_book", Since: 1,
		Columns: []Column{
			str("khataBookId"), str("customerMobile"), str("planName"), date("startDate"), date("endDate"),
			num("monthlyAmount"), count("totalMonths"), str("status"), str("notes").optional(),
			str("userId"), str("storeId"),
		},
		KeyFields:   []string{"khataBookId"},
		ScopeFields: scoped,
	}

	Transaction = &Definition{
		Name: "transactions", Sheet: "CustomerTransactionEntity", Table: "customer_transaction", Since: 1,
		Columns: []Column{
			str("transactionId"), str("customerMobile"), date("transactionDate"), num("amount"),
			str("transactionType"), str("category"), str("description").optional(),
			str("referenceNumber").optional(), str("paymentMethod"), str("khataBookId").optional(),
			count("monthNumber"), str("notes").optional(), str("userId"), str("storeId"),
		},
		KeyFields:   []string{"transactionId"},
		ScopeFields: scoped,
	}

	Order = &Definition{
		Name: "orders", Sheet: "OrderEntity", Table: "orders", Since: 1,
		Columns: []Column{
			str("orderId"), str("customerMobile"), str("storeId"), str("userId"), date("orderDate"),
			num("totalAmount"), num("totalTax"), num("totalCharge"),
			num("discount").since(2), str("note").since(2).optional(),
		},
		KeyFields:   []string{"orderId"},
		ScopeFields: scoped,
	}

	OrderItem = &Definition{
		Name: "order-items", Sheet: "OrderItemEntity", Table: "order_item", Since: 1,
		Columns: []Column{
			str("orderItemId"), str("orderId"), date("orderDate"), str("itemId"), str("customerMobile"),
			str("catId"), str("catName"), str("itemAddName"), str("subCatId"), str("subCatName"),
			str("entryType"), count("quantity"), num("gsWt"), num("ntWt"), num("fnWt"),
			num("fnMetalPrice"), str("purity"), str("crgType"), num("crg"), str("othCrgDes"),
			num("othCrg"), num("cgst"), num("sgst"), num("igst"), num("price"), num("charge"),
			num("tax"), str("huid").since(3),
		},
		KeyFields: []string{"orderItemId"},
	}

	ExchangeItem = &Definition{
		Name: "exchange-items", Sheet: "ExchangeItemEntity", Table: "exchange_item", Since: 1,
		Columns: []Column{
			str("exchangeItemId"), str("orderId"), date("orderDate"), str("customerMobile"),
			str("metalType"), str("purity"), num("grossWeight"), num("fineWeight"), num("price"),
			flag("isExchangedByMetal"), num("exchangeValue"), date("addDate"),
		},
		KeyFields: []string{"exchangeItemId"},
	}

	Firm = &Definition{
		Name: "firms", Sheet: "FirmEntity", Table: "firm", Since: 1,
		Columns: []Column{
			str("firmId"), str("firmName"), str("firmMobileNumber"), str("gstNumber"),
			str("address"), str("userId"), str("storeId"),
		},
		KeyFields:   []string{"firmId"},
		ScopeFields: scoped,
	}

	PurchaseOrder = &Definition{
		Name: "purchase-orders", Sheet: "PurchaseOrderEntity", Table: "purchase_order", Since: 1,
		Columns: []Column{
			str("purchaseOrderId"), str("sellerId"), str("billNo"), date("billDate"), date("entryDate"),
			str("extraChargeDescription").optional(), num("extraCharge"), num("totalFinalWeight"),
			num("totalFinalAmount"), str("notes").optional(), num("cgstPercent"), num("sgstPercent"),
			num("igstPercent"), str("userId"), str("storeId"),
		},
		KeyFields:   []string{"purchaseOrderId"},
		ScopeFields: scoped,
	}

	PurchaseOrderItem = &Definition{
		Name: "purchase-order-items", Sheet: "PurchaseOrderItemEntity", Table: "purchase_order_item", Since: 1,
		Columns: []Column{
			str("purchaseItemId"), str("purchaseOrderId"), str("catId"), str("catName"), str("subCatId"),
			str("subCatName"), num("gsWt"), str("purity"), num("ntWt"), num("fnWt"), num("fnRate"),
			num("wastagePercent"),
		},
		KeyFields: []string{"purchaseItemId"},
	}

	MetalExchange = &Definition{
		Name: "metal-exchanges", Sheet: "MetalExchangeEntity", Table: "metal_exchange", Since: 1,
		Columns: []Column{
			str("exchangeId"), str("purchaseOrderId"), str("catId"), str("catName"), str("subCatId"),
			str("subCatName"), num("fnWeight"), str("userId"), str("storeId"),
		},
		KeyFields:   []string{"exchangeId"},
		ScopeFields: scoped,
	}
)

var exportOrder = []*Definition{
	Users, Store, Category, SubCategory, Item, Customer, KhataBookPlan, KhataBook,
	Transaction, Order, OrderItem, ExchangeItem, Firm, PurchaseOrder, PurchaseOrderItem,
	MetalExchange, UserAdditionalInfo,
}

var importOrder = []*Definition{
	Users, UserAdditionalInfo, Store, Category, SubCategory, Item, Customer, KhataBookPlan,
	KhataBook, Transaction, Order, OrderItem, ExchangeItem, Firm, PurchaseOrder,
	PurchaseOrderItem, MetalExchange,
}

// All returns every entity in export order
func All() []*Definition {
	out := make([]*Definition, len(exportOrder))
	copy(out, exportOrder)
	return out
}

// ImportOrder returns every entity in foreign-key dependency order
func ImportOrder() []*Definition {
	out := make([]*Definition, len(importOrder))
	copy(out, importOrder)
	return out
}

// Lookup finds an entity by sheet name, table name or short name
func Lookup(name string) (*Definition, bool) {
	for _, d := range exportOrder {
		if strings.EqualFold(d.Sheet, name) || strings.EqualFold(d.Table, name) || strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return nil, false
}

// UnprotectedEntities lists entities that have no protected record under REPLACE
func UnprotectedEntities() []*Definition {
	var out []*Definition
	for _, d := range importOrder {
		if d.Protected == ProtectNone {
			out = append(out, d)
		}
	}
	return out
}
