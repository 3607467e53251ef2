// Package domain models JHU-APL EZIE-Mag magnetometer kit data.
//
// # Data Source
//
// Each EZIE-Mag kit (geos1, geos2, ...) uploads daily or weekly zip archives
// named "<basename>.<descriptor>.zip", where the descriptor is usually the
// collection date, e.g. "geos1.20230101.zip". Inside an archive the hourly
// summary files live several folders deep:
//
//	<station>/<date>/smr.60s/<hour>/<name>smr.60s.txt
//
// # Hourly File Format
//
// Hourly files have no header. Each line holds exactly 24 tokens separated by
// spaces, in this fixed order:
//
//	timeString tval intt nsamp stid fingerprint latitude longitude altitude
//	tres ctemp ccr Bx By Bz afs_sel fs_sel Ax Ay Az Gx Gy Gz imu_ctemp
//
// timeString is an ISO-8601 timestamp without embedded spaces, for example
// "2023-01-01T00:00:00.000". Zoneless timestamps are taken as UTC.
//
// Bx, By and Bz are the magnetic field components; Ax..Az and Gx..Gz are the
// IMU accelerometer and gyroscope readings; ctemp and imu_ctemp are the
// magnetometer and IMU chip temperatures.
//
// # Merged Tables
//
// A Table is the row-wise concatenation of any number of hourly files. Rows
// keep the index they had inside their source file (SourceIndex) and receive a
// fresh zero-based Index across the whole table.
package domain
