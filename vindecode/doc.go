// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package vindecode validates VINs and decodes them through NHTSA's vPIC API.

ValidateVIN is offline: 17 characters from the VIN alphabet (no I, O or Q)
and a position 9 check digit computed with the ISO 3779 weights. Callers pass
a VIN through Normalize first.

Client.Decode calls

	GET /api/vehicles/DecodeVinValues/{vin}?format=json

vPIC always answers 200 and reports problems in the ErrorCode field of the
first result. Any leading code other than "0" is returned as ErrDecodeFailed
wrapped with vPIC's ErrorText. Makes come back upper-cased and are converted
to title case.

vPIC is free and needs no key, so the client is always enabled.
*/
package vindecode
