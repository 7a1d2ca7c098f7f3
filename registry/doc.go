/*
Package registry caches per-type field plans for tablestore entities.

Some Go field kinds have no faithful representation in the property bag. Tag them so the
converters store them in a portable form:

	type Order struct {
	    storagemodels.TableEntity
	    Total  float64 `tablestore:"decimal"` // stored as a string, e.g. "12.5"
	    Status Status  `tablestore:"enum"`    // stored as a number
	}

Plans are built by reflection on first use and cached by reflect.Type. The registry is
safe for concurrent use.
*/
package registry
