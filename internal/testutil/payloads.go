package testutil

// Sample payloads shared by decoder, runner and CLI tests.

// TwitterStatuses is plain record-oriented XML; records are "status".
const TwitterStatuses = `<?xml version="1.0" encoding="UTF-8"?>
<statuses type="array">
  <status>
    <text>Tweet one.</text>
  </status>
  <status>
    <user>
      <name>Doug Williams</name>
    </user>
    <text>Tweet two.</text>
  </status>
</statuses>`

// AtomProducts is an Atom feed with an inline count, typed properties, a
// null and an expanded navigation link.
const AtomProducts = `<?xml version="1.0" encoding="utf-8"?>
<feed xml:base="http://svc/"
      xmlns="http://www.w3.org/2005/Atom"
      xmlns:d="http://schemas.microsoft.com/ado/2007/08/dataservices"
      xmlns:m="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata">
  <title type="text">Products</title>
  <m:count>77</m:count>
  <entry>
    <id>http://svc/Products(1)</id>
    <category term="NorthwindModel.Product" scheme="http://schemas.microsoft.com/ado/2007/08/dataservices/scheme" />
    <link rel="http://schemas.microsoft.com/ado/2007/08/dataservices/related/Category" type="application/atom+xml;type=entry" title="Category" href="Products(1)/Category">
      <m:inline>
        <entry>
          <category term="NorthwindModel.Category" scheme="http://schemas.microsoft.com/ado/2007/08/dataservices/scheme" />
          <content type="application/xml">
            <m:properties>
              <d:CategoryID m:type="Edm.Int32">1</d:CategoryID>
              <d:CategoryName>Beverages</d:CategoryName>
            </m:properties>
          </content>
        </entry>
      </m:inline>
    </link>
    <content type="application/xml">
      <m:properties>
        <d:ProductID m:type="Edm.Int32">1</d:ProductID>
        <d:ProductName>Chai</d:ProductName>
        <d:UnitPrice m:type="Edm.Decimal">18.0000</d:UnitPrice>
        <d:Discontinued m:type="Edm.Boolean">false</d:Discontinued>
        <d:QuantityPerUnit m:null="true" />
      </m:properties>
    </content>
  </entry>
  <entry>
    <id>http://svc/Products(2)</id>
    <category term="NorthwindModel.Product" scheme="http://schemas.microsoft.com/ado/2007/08/dataservices/scheme" />
    <link rel="http://schemas.microsoft.com/ado/2007/08/dataservices/related/Category" type="application/atom+xml;type=entry" title="Category" href="Products(2)/Category">
      <m:inline />
    </link>
    <content type="application/xml">
      <m:properties>
        <d:ProductID m:type="Edm.Int32">2</d:ProductID>
        <d:ProductName>Chang</d:ProductName>
        <d:UnitPrice m:type="Edm.Decimal">19.0000</d:UnitPrice>
        <d:Discontinued m:type="Edm.Boolean">true</d:Discontinued>
        <d:QuantityPerUnit>24 - 12 oz bottles</d:QuantityPerUnit>
      </m:properties>
    </content>
  </entry>
</feed>`

// AtomEntry is a single Atom entry document with typed dates and a guid.
const AtomEntry = `<?xml version="1.0" encoding="utf-8"?>
<entry xmlns="http://www.w3.org/2005/Atom"
       xmlns:d="http://schemas.microsoft.com/ado/2007/08/dataservices"
       xmlns:m="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata">
  <category term="NorthwindModel.Order" scheme="http://schemas.microsoft.com/ado/2007/08/dataservices/scheme" />
  <content type="application/xml">
    <m:properties>
      <d:OrderID m:type="Edm.Int32">10248</d:OrderID>
      <d:OrderDate m:type="Edm.DateTime">1996-07-04T00:00:00</d:OrderDate>
      <d:Token m:type="Edm.Guid">0f8fad5b-d9cb-469f-a165-70867728950e</d:Token>
      <d:ShipAddress m:type="NorthwindModel.Address">
        <d:City>Reims</d:City>
        <d:Country>France</d:Country>
      </d:ShipAddress>
      <d:Tags m:type="Collection(Edm.String)">
        <d:element>urgent</d:element>
        <d:element>export</d:element>
      </d:Tags>
    </m:properties>
  </content>
</entry>`

// JSONLightProducts is a v4 JSON payload.
const JSONLightProducts = `{
  "@odata.context": "http://svc/$metadata#Products",
  "@odata.count": 2,
  "value": [
    {"@odata.type": "#NorthwindModel.Product", "ProductID": 1, "ProductName": "Chai", "UnitPrice": 18.5, "Discontinued": false},
    {"@odata.type": "#NorthwindModel.Product", "ProductID": 2, "ProductName": "Chang", "UnitPrice": 19, "Discontinued": true}
  ]
}`

// JSONVerboseProducts is a v2 verbose JSON payload with a deferred link, an
// expanded collection and a legacy date.
const JSONVerboseProducts = `{
  "d": {
    "__count": "2",
    "results": [
      {
        "__metadata": {"uri": "http://svc/Products(1)", "type": "NorthwindModel.Product"},
        "ProductID": 1,
        "ProductName": "Chai",
        "Category": {"__deferred": {"uri": "http://svc/Products(1)/Category"}},
        "Orders": {"results": [{"__metadata": {"type": "NorthwindModel.Order"}, "OrderID": 10248}]},
        "Created": "/Date(836438400000)/"
      },
      {
        "__metadata": {"uri": "http://svc/Products(2)", "type": "NorthwindModel.Product"},
        "ProductID": 2,
        "ProductName": "Chang",
        "Category": {"__deferred": {"uri": "http://svc/Products(2)/Category"}},
        "Orders": {"results": []},
        "Created": null
      }
    ]
  }
}`

// JSONVerboseEntry is a single v2 entry.
const JSONVerboseEntry = `{"d": {"__metadata": {"type": "NorthwindModel.Customer"}, "CustomerID": "ALFKI", "CompanyName": "Alfreds Futterkiste"}}`

// FunctionPrimitiveCollectionXML is a service operation returning a
// collection of primitives.
const FunctionPrimitiveCollectionXML = `<?xml version="1.0" encoding="utf-8"?>
<ProductNames xmlns="http://schemas.microsoft.com/ado/2007/08/dataservices"
              xmlns:m="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata">
  <element>Chai</element>
  <element>Chang</element>
</ProductNames>`

// FunctionScalarXML is a service operation returning a single primitive.
const FunctionScalarXML = `<?xml version="1.0" encoding="utf-8"?>
<ProductCount xmlns="http://schemas.microsoft.com/ado/2007/08/dataservices"
              xmlns:m="http://schemas.microsoft.com/ado/2007/08/dataservices/metadata"
              m:type="Edm.Int32">77</ProductCount>`
