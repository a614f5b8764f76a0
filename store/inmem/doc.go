// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

/*
Package inmem provides an in-memory object store adapter. It was created to help
get an instance of keeper up and running quickly without a need to set up a
dedicated object store. Since the current implementation keeps every packet in
process memory, it is recommended for test environments only.
*/
package inmem
