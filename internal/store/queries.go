package store

// queryListProducts matches the catalog schema the checker has always read:
// one row per tracked product, no filtering, natural order.
const queryListProducts = `
SELECT name, url, product_id, store_type, affiliate_link
FROM products
`
