// Package sales ingests the raw commercial-district sales tables and
// collapses them into the quarterly dessert panel.
//
// Raw files are CSV (UTF-8, optionally byte-order-marked, or the legacy
// Korean cp949 code page) or spreadsheets. Each row carries a YYYYQ period
// code, a district code, a service-category label and monthly sales
// amount/count. BuildPanel keeps one row per (district, year, quarter):
// duplicate category rows are averaged, dessert categories are summed into
// sales_amount/sales_count and every category is summed into
// total_sales_amount, the denominator of the dessert share.
package sales
