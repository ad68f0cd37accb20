package metadata

import (
	"fmt"
	"strings"
	"text/template"
)

var promptTemplate = template.Must(template.New("prompt").Parse(`
You are an expert data analyst.
Use the following DDL to write metadata that can be used later to map verbal descriptions and natural language questions to the tables in the DDL.

<DDL>
{{.DDL}}
</DDL>
<DATABASE_NAME>{{.DatabaseName}}</DATABASE_NAME>
<CHANNEL>{{.Channel}}</CHANNEL>

Leave out any housekeeping columns like IDs and create/update timestamps.
Only describe the business data in each table.
For each column (especially confusing ones like "ean"), add a description
For example, for the "address" table in a "WebShop" database (from the <DDL> tag attribute), you'd create a metadata tag that looks like this:

<METADATA CHANNEL="{{.Channel}}" DATABASE="{{.DatabaseName}}" TABLE="address">
- Description: Addresses for receipts and shipping.
- Data:
-- firstname: Legal first name of the person living at this address
-- lastname: Legal last name of the person living at this address
-- address1: House number, street, apartment
-- address2: Street, floor, room, office number
-- city: City and state name
-- zip: US Zip Code or world postal code
- Relationships:
-- (address.customerid → customer.id) - Table containing information about the customers who purchase products
</METADATA>

Separate each metadata tag with two blank lines.
`))

type promptData struct {
	DDL          string
	DatabaseName string
	Channel      string
}

// BuildPrompt embeds the DDL, database name and channel into the metadata
// instruction template. The DDL is embedded verbatim.
func BuildPrompt(ddl, databaseName, channel string) (string, error) {
	var b strings.Builder
	err := promptTemplate.Execute(&b, promptData{
		DDL:          ddl,
		DatabaseName: databaseName,
		Channel:      channel,
	})
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}
	return b.String(), nil
}
