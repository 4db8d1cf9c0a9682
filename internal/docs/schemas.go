package docs

import "github.com/getkin/kin-openapi/openapi3"

func str() *openapi3.Schema      { return openapi3.NewStringSchema() }
func id() *openapi3.Schema       { return openapi3.NewUUIDSchema() }
func money() *openapi3.Schema    { return openapi3.NewInt64Schema().WithMin(0) }
func datetime() *openapi3.Schema { return openapi3.NewDateTimeSchema() }

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func object(required []string, props map[string]*openapi3.Schema) *openapi3.Schema {
	s := openapi3.NewObjectSchema().WithProperties(props)
	if len(required) > 0 {
		s = s.WithRequired(required)
	}
	return s
}

func withRef(s *openapi3.Schema, prop, name string) *openapi3.Schema {
	s.Properties[prop] = ref(name)
	return s
}

func arrayOf(name string) *openapi3.Schema {
	s := openapi3.NewArraySchema()
	s.Items = ref(name)
	return s
}

// envelope wraps a schema reference in {"data": ...}.
func envelope(data *openapi3.SchemaRef) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	s.Properties = openapi3.Schemas{"data": data}
	return s
}

func pagedOf(name string) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	s.Properties = openapi3.Schemas{
		"data":       arrayOf(name).NewRef(),
		"pagination": ref("Pagination"),
	}
	return s
}

func componentSchemas() openapi3.Schemas {
	schemas := map[string]*openapi3.Schema{
		"Error": object([]string{"error"}, map[string]*openapi3.Schema{
			"error": object([]string{"code", "message"}, map[string]*openapi3.Schema{
				"code":    str(),
				"message": str(),
				"details": openapi3.NewObjectSchema().WithAnyAdditionalProperties(),
			}),
		}),
		"Pagination": object(nil, map[string]*openapi3.Schema{
			"page":       openapi3.NewIntegerSchema(),
			"limit":      openapi3.NewIntegerSchema(),
			"totalItems": openapi3.NewInt64Schema(),
			"totalPages": openapi3.NewInt64Schema(),
		}),
		"Category": object([]string{"id", "name"}, map[string]*openapi3.Schema{
			"id": id(), "name": str(), "description": str(),
			"createdAt": datetime(), "updatedAt": datetime(),
		}),
		"CategoryInput": object([]string{"name"}, map[string]*openapi3.Schema{
			"name":        str().WithMinLength(1).WithMaxLength(100),
			"description": str().WithMaxLength(1000),
		}),
		"Product": object([]string{"id", "name", "price", "stock"}, map[string]*openapi3.Schema{
			"id": id(), "categoryId": id(), "name": str(), "description": str(),
			"price": money(), "stock": openapi3.NewIntegerSchema(), "imageUrl": str(),
			"createdAt": datetime(), "updatedAt": datetime(),
		}),
		"ProductInput": object([]string{"name", "price"}, map[string]*openapi3.Schema{
			"categoryId":  id(),
			"name":        str().WithMinLength(1).WithMaxLength(200),
			"description": str().WithMaxLength(4000),
			"price":       money(),
			"stock":       openapi3.NewIntegerSchema().WithMin(0),
		}),
		"ImageUpload": object([]string{"image"}, map[string]*openapi3.Schema{
			"image": str().WithFormat("binary"),
		}),
		"User": object([]string{"id", "email"}, map[string]*openapi3.Schema{
			"id": id(), "email": str().WithFormat("email"), "name": str(),
			"roles":     openapi3.NewArraySchema().WithItems(str()),
			"createdAt": datetime(), "updatedAt": datetime(),
		}),
		"Register": object([]string{"email", "password"}, map[string]*openapi3.Schema{
			"email": str().WithFormat("email"), "name": str().WithMaxLength(100), "password": str().WithFormat("password"),
		}),
		"Login": object([]string{"email", "password"}, map[string]*openapi3.Schema{
			"email": str().WithFormat("email"), "password": str().WithFormat("password"),
		}),
		"RefreshRequest": object([]string{"refreshToken"}, map[string]*openapi3.Schema{
			"refreshToken": str(),
		}),
		"ChangePassword": object([]string{"currentPassword", "newPassword"}, map[string]*openapi3.Schema{
			"currentPassword": str().WithFormat("password"), "newPassword": str().WithFormat("password"),
		}),
		"AuthResult": withRef(object([]string{"accessToken", "expiresAt"}, map[string]*openapi3.Schema{
			"accessToken": str(), "expiresAt": datetime(),
			"refreshToken": str(), "refreshExpiresAt": datetime(),
			"tokenType": str(),
		}), "user", "User"),
		"ProfileUpdate": object([]string{"name"}, map[string]*openapi3.Schema{
			"name": str().WithMinLength(1).WithMaxLength(100),
		}),
		"RoleAssignment": object([]string{"role"}, map[string]*openapi3.Schema{
			"role": str().WithEnum("Admin", "Customer"),
		}),
		"CartLine": object(nil, map[string]*openapi3.Schema{
			"productId": id(), "name": str(), "price": money(), "stock": openapi3.NewIntegerSchema(),
			"imageUrl": str(), "quantity": openapi3.NewIntegerSchema(), "lineTotal": money(), "addedAt": datetime(),
		}),
		"Cart": object(nil, map[string]*openapi3.Schema{
			"id": id(), "items": arrayOf("CartLine"), "itemCount": openapi3.NewIntegerSchema(), "total": money(),
		}),
		"CartItemInput": object([]string{"productId", "quantity"}, map[string]*openapi3.Schema{
			"productId": id(), "quantity": openapi3.NewIntegerSchema().WithMin(1),
		}),
		"QuantityInput": object([]string{"quantity"}, map[string]*openapi3.Schema{
			"quantity": openapi3.NewIntegerSchema().WithMin(1),
		}),
		"Checkout": object([]string{"shippingAddress"}, map[string]*openapi3.Schema{
			"shippingAddress": str().WithMinLength(5).WithMaxLength(500),
		}),
		"OrderItem": object(nil, map[string]*openapi3.Schema{
			"id": id(), "orderId": id(), "productId": id(), "productName": str(),
			"unitPrice": money(), "quantity": openapi3.NewIntegerSchema(), "lineTotal": money(),
		}),
		"Order": object([]string{"id", "status", "total"}, map[string]*openapi3.Schema{
			"id": id(), "userId": id(),
			"status":          str().WithEnum("Pending", "Paid", "Shipped", "Delivered", "Cancelled"),
			"total":           money(),
			"shippingAddress": str(),
			"items":           arrayOf("OrderItem"),
			"createdAt":       datetime(), "updatedAt": datetime(),
		}),
		"StatusUpdate": object([]string{"status"}, map[string]*openapi3.Schema{
			"status": str().WithEnum("Paid", "Shipped", "Delivered", "Cancelled"),
		}),
		"PaymentInput": object([]string{"amount", "method"}, map[string]*openapi3.Schema{
			"amount": money(),
			"method": str().WithEnum("card", "bank_transfer", "ewallet", "cash_on_delivery"),
		}),
		"Payment": object([]string{"id", "orderId", "amount", "status"}, map[string]*openapi3.Schema{
			"id": id(), "orderId": id(), "amount": money(), "method": str(),
			"status": str().WithEnum("Pending", "Completed", "Failed", "Refunded"), "reference": str(),
			"createdAt": datetime(), "updatedAt": datetime(),
		}),
	}
	out := make(openapi3.Schemas, len(schemas))
	for name, s := range schemas {
		out[name] = s.NewRef()
	}
	return out
}
